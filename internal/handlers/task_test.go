package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/models"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	env    *testEnv
	cookie *http.Cookie
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.env = setupTestEnv(suite.T(), false)
	suite.cookie = suite.env.signIn(suite.T(), "owner@example.com")
}

func (suite *TaskHandlerTestSuite) createTask(payload map[string]interface{}) dto.TaskDTO {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", payload, suite.cookie)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.TaskDTO](suite.T(), w)
}

func (suite *TaskHandlerTestSuite) listTasks(cookie *http.Cookie) dto.TaskListResponse {
	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks", nil, cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	return decode[dto.TaskListResponse](suite.T(), w)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_AppearsFirstAndIncomplete() {
	suite.createTask(map[string]interface{}{"title": "Older task"})
	created := suite.createTask(map[string]interface{}{"title": "Buy milk", "priority": "high"})

	suite.False(created.IsComplete)
	suite.Equal(models.PriorityHigh, created.Priority)

	list := suite.listTasks(suite.cookie)
	suite.Require().Len(list.Tasks, 2)
	suite.Equal("Buy milk", list.Tasks[0].Title)
	suite.Equal(models.PriorityHigh, list.Tasks[0].Priority)
	suite.False(list.Tasks[0].IsComplete)
	suite.Equal(uint64(2), list.Snapshot)
	suite.Nil(list.Pagination)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_DefaultsToMedium() {
	created := suite.createTask(map[string]interface{}{"title": "  Water plants  "})

	suite.Equal("Water plants", created.Title)
	suite.Equal(models.PriorityMedium, created.Priority)
	suite.False(created.IsComplete)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_IgnoresClientCompletion() {
	created := suite.createTask(map[string]interface{}{"title": "Fresh", "is_complete": true})
	suite.False(created.IsComplete)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Validation() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", map[string]interface{}{"title": "   "}, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks", map[string]interface{}{"title": "x", "priority": "urgent"}, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)

	suite.Empty(suite.listTasks(suite.cookie).Tasks)
}

func (suite *TaskHandlerTestSuite) TestListTasks_Paginated() {
	for _, title := range []string{"a", "b", "c"} {
		suite.createTask(map[string]interface{}{"title": title})
	}

	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks?page=2&limit=2", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	list := decode[dto.TaskListResponse](suite.T(), w)
	suite.Len(list.Tasks, 1)
	suite.Require().NotNil(list.Pagination)
	suite.Equal(int64(3), list.Pagination.Total)
}

func (suite *TaskHandlerTestSuite) TestToggleTask_TwiceRestores() {
	created := suite.createTask(map[string]interface{}{"title": "Toggle"})

	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks/"+created.ID+"/toggle", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.True(decode[dto.TaskDTO](suite.T(), w).IsComplete)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks/"+created.ID+"/toggle", nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.False(decode[dto.TaskDTO](suite.T(), w).IsComplete)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask() {
	created := suite.createTask(map[string]interface{}{"title": "Draft"})

	w := suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+created.ID,
		map[string]interface{}{"priority": "low", "is_complete": true}, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)

	updated := decode[dto.TaskDTO](suite.T(), w)
	suite.Equal(models.PriorityLow, updated.Priority)
	suite.True(updated.IsComplete)
	suite.Equal("Draft", updated.Title)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_ThenUpdateIsNotFound() {
	created := suite.createTask(map[string]interface{}{"title": "Temporary"})

	w := suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+created.ID, nil, suite.cookie)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Empty(suite.listTasks(suite.cookie).Tasks)

	w = suite.env.do(suite.T(), http.MethodPatch, "/api/tasks/"+created.ID, map[string]interface{}{"is_complete": true}, suite.cookie)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(apierrors.ErrCodeNotFound, decode[apierrors.APIError](suite.T(), w).Code)

	w = suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+created.ID, nil, suite.cookie)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestOwnerIsolation() {
	created := suite.createTask(map[string]interface{}{"title": "Mine"})
	other := suite.env.signIn(suite.T(), "other@example.com")

	suite.Empty(suite.listTasks(other).Tasks)

	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks/"+created.ID+"/toggle", nil, other)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(suite.T(), http.MethodDelete, "/api/tasks/"+created.ID, nil, other)
	suite.Equal(http.StatusNotFound, w.Code)

	suite.Len(suite.listTasks(suite.cookie).Tasks, 1)
}

func (suite *TaskHandlerTestSuite) TestInvalidTaskID() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks/123/toggle", nil, suite.cookie)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.do(suite.T(), http.MethodPost, "/api/tasks/"+uuid.NewString()+"/toggle", nil, suite.cookie)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestRequiresSession() {
	w := suite.env.do(suite.T(), http.MethodGet, "/api/tasks", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSuggestTasks_NotConfigured() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks/suggest", map[string]string{"text": "buy milk tomorrow"}, suite.cookie)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MalformedBodyHasDetails() {
	w := suite.env.do(suite.T(), http.MethodPost, "/api/tasks", "not an object", suite.cookie)
	suite.Require().Equal(http.StatusBadRequest, w.Code)

	body := decode[apierrors.APIError](suite.T(), w)
	suite.Equal(apierrors.ErrCodeInvalidInput, body.Code)
	suite.Equal("Invalid request body", body.Message)
	details, ok := body.Details.(string)
	suite.Require().True(ok, "details should carry the decoder message")
	suite.NotEmpty(details)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
