package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	broker      realtime.Broker
	heartbeat   time.Duration
	log         logging.Logger
}

func NewTaskHandler(taskService *services.TaskService, broker realtime.Broker, log logging.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		broker:      broker,
		heartbeat:   constants.RealtimeHeartbeatInterval,
		log:         log,
	}
}

// ListTasks returns the current user's tasks, newest first
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)

	result, err := h.taskService.ListTasks(c.Request.Context(), userID, params)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(result.Tasks, result.Snapshot, params, result.Total))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Priority    models.TaskPriority `json:"priority"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateTaskRequest struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		Priority    *models.TaskPriority `json:"priority"`
		IsComplete  *bool                `json:"is_complete"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, middleware.GetTaskID(c), services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		IsComplete:  req.IsComplete,
	})
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ToggleTask flips a task's completion
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.ToggleTask(c.Request.Context(), userID, middleware.GetTaskID(c))
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, middleware.GetTaskID(c)); err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// SuggestTasks generates task suggestions from text using AI
func (h *TaskHandler) SuggestTasks(c *gin.Context) {
	type SuggestTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req SuggestTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	suggestions, err := h.taskService.SuggestTasks(c.Request.Context(), req.Text)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": suggestions,
	})
}

// StreamTasks sends the user's task list followed by live changes as
// Server-Sent Events. The subscription is opened before the list is read,
// and changes already covered by the list's snapshot sequence are skipped.
func (h *TaskHandler) StreamTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	ctx := c.Request.Context()

	sub, err := h.broker.Subscribe(ctx, userID)
	if err != nil {
		h.log.Error(ctx, "failed to subscribe to task changes", "user_id", userID, "error", err)
		apierrors.ServiceUnavailable(c, "Realtime updates are unavailable")
		return
	}
	defer sub.Close()

	all := utils.PaginationParams{Page: constants.MinPageSize}
	result, err := h.taskService.ListTasks(ctx, userID, all)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("snapshot", dto.ToTaskListResponse(result.Tasks, result.Snapshot, all, result.Total))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case change, ok := <-sub.C:
			if !ok {
				if sub.Dropped() {
					// The client fell behind; it must take a new snapshot.
					c.SSEvent("resync", gin.H{"reason": "subscriber fell behind"})
					c.Writer.Flush()
				}
				return
			}
			if change.Seq <= result.Snapshot {
				continue
			}
			c.SSEvent("change", change)
			c.Writer.Flush()

		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func (h *TaskHandler) respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTitleRequired):
		apierrors.BadRequest(c, "Title is required")
	case errors.Is(err, services.ErrTitleTooLong):
		apierrors.BadRequest(c, "Title must be at most 255 characters")
	case errors.Is(err, services.ErrInvalidPriority):
		apierrors.BadRequest(c, "Priority must be one of low, medium, high")
	case errors.Is(err, services.ErrNoTaskChanges):
		apierrors.BadRequest(c, "No fields to update")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case errors.Is(err, services.ErrAINoTasksGenerated):
		apierrors.BadRequest(c, "No tasks could be extracted from the text")
	default:
		h.log.Error(c.Request.Context(), "task request failed", "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
