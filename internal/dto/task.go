package dto

import (
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	IsComplete  bool                `json:"is_complete"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TaskListResponse is the owner's task list and the change sequence it
// reflects. Pagination is present only when a limit was requested.
type TaskListResponse struct {
	Tasks      []TaskDTO                 `json:"tasks"`
	Snapshot   uint64                    `json:"snapshot"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}

// DashboardResponse is the signed-in landing summary
type DashboardResponse struct {
	User         UserDTO `json:"user"`
	PendingTasks int64   `json:"pending_tasks"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		IsComplete:  task.IsComplete,
		CreatedAt:   task.CreatedAt,
	}
}

// ToTaskModel converts a TaskDTO back into a model, for clients
func ToTaskModel(t TaskDTO) models.Task {
	return models.Task{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		IsComplete:  t.IsComplete,
		CreatedAt:   t.CreatedAt,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, snapshot uint64, params utils.PaginationParams, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	resp := TaskListResponse{
		Tasks:    items,
		Snapshot: snapshot,
	}
	if params.Limit > 0 {
		resp.Pagination = &utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: totalCount,
		}
	}
	return resp
}
