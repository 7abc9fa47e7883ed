package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleTooLong           = errors.New("title is too long")
	ErrInvalidPriority        = errors.New("priority must be one of low, medium, high")
	ErrNoTaskChanges          = errors.New("no fields to update")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
)

// TaskService handles task business logic. Every operation is scoped to the
// calling user, and every successful write is published to the realtime
// broker.
type TaskService struct {
	taskRepo  repository.TaskRepository
	broker    realtime.Broker
	aiService *AIService
	log       logging.Logger
	now       func() time.Time
}

// NewTaskService creates a new TaskService. aiService may be nil.
func NewTaskService(taskRepo repository.TaskRepository, broker realtime.Broker, aiService *AIService, log logging.Logger) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		broker:    broker,
		aiService: aiService,
		log:       log.With("component", "tasks"),
		now:       time.Now,
	}
}

// TaskListResult is a list of tasks and the change sequence it reflects.
type TaskListResult struct {
	Tasks    []models.Task
	Total    int64
	Snapshot uint64
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
}

// UpdateTaskInput represents input for updating a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	IsComplete  *bool
}

// ListTasks returns the user's tasks, newest first. The snapshot sequence is
// read before the query, so every change after it is either reflected in the
// result or will still be delivered on a subscription opened earlier.
func (s *TaskService) ListTasks(ctx context.Context, userID string, page utils.PaginationParams) (*TaskListResult, error) {
	snapshot, err := s.broker.Seq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read change sequence: %w", err)
	}

	tasks, total, err := s.taskRepo.ListByOwner(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &TaskListResult{Tasks: tasks, Total: total, Snapshot: snapshot}, nil
}

// CreateTask validates and stores a new, incomplete task.
func (s *TaskService) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*models.Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		IsComplete:  false,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publish(ctx, realtime.Change{EventType: realtime.ChangeInsert, UserID: userID, New: task})
	return task, nil
}

// UpdateTask applies the provided fields to the user's task.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	updates := map[string]interface{}{}

	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		updates["priority"] = *input.Priority
	}
	if input.IsComplete != nil {
		updates["is_complete"] = *input.IsComplete
	}
	if len(updates) == 0 {
		return nil, ErrNoTaskChanges
	}

	return s.applyUpdate(ctx, userID, taskID, updates)
}

// ToggleTask flips the completion flag of the user's task.
func (s *TaskService) ToggleTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindOwned(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return s.applyUpdate(ctx, userID, taskID, map[string]interface{}{"is_complete": !task.IsComplete})
}

// DeleteTask removes the user's task.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	removed, err := s.taskRepo.DeleteOwned(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.publish(ctx, realtime.Change{EventType: realtime.ChangeDelete, UserID: userID, Old: removed})
	return nil
}

// SuggestTasks asks the AI service for task suggestions extracted from text.
func (s *TaskService) SuggestTasks(ctx context.Context, text string) ([]SuggestedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	suggestions, err := s.aiService.SuggestTasks(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(suggestions) > constants.MaxAISuggestedTasks {
		suggestions = suggestions[:constants.MaxAISuggestedTasks]
	}

	valid := make([]SuggestedTask, 0, len(suggestions))
	for _, sug := range suggestions {
		title, err := validateTitle(sug.Title)
		if err != nil {
			continue
		}
		sug.Title = title
		if !sug.Priority.Valid() {
			sug.Priority = models.PriorityMedium
		}
		valid = append(valid, sug)
	}

	if len(valid) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	return valid, nil
}

func (s *TaskService) applyUpdate(ctx context.Context, userID, taskID string, updates map[string]interface{}) (*models.Task, error) {
	task, err := s.taskRepo.UpdateOwned(ctx, taskID, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.publish(ctx, realtime.Change{EventType: realtime.ChangeUpdate, UserID: userID, New: task})
	return task, nil
}

// publish announces a committed write. A failure is logged, not returned:
// the write itself succeeded.
func (s *TaskService) publish(ctx context.Context, change realtime.Change) {
	if _, err := s.broker.Publish(context.WithoutCancel(ctx), change); err != nil {
		s.log.Error(ctx, "failed to publish task change",
			"event", change.EventType,
			"task_id", change.TaskID(),
			"user_id", change.UserID,
			"error", err,
		)
	}
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len(title) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
