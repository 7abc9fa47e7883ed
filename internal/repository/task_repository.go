package repository

import (
	"context"

	"github.com/yukikurage/taskmaster/internal/database"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// ListByOwner lists the owner's tasks ordered by creation time, newest first
func (r *GormTaskRepository) ListByOwner(ctx context.Context, userID string, page utils.PaginationParams) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.OwnedBy(userID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Scopes(database.Paginate(page)).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// FindOwned finds a task by ID and owner
func (r *GormTaskRepository) FindOwned(ctx context.Context, id, userID string) (*models.Task, error) {
	return findOwned(r.db.WithContext(ctx), id, userID)
}

// UpdateOwned applies column updates to the owner's task and returns the new row
func (r *GormTaskRepository) UpdateOwned(ctx context.Context, id, userID string, updates map[string]interface{}) (*models.Task, error) {
	var task *models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOwned(tx, id, userID); err != nil {
			return err
		}

		if err := tx.Model(&models.Task{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error; err != nil {
			return err
		}

		var err error
		task, err = findOwned(tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteOwned deletes the owner's task and returns the removed row
func (r *GormTaskRepository) DeleteOwned(ctx context.Context, id, userID string) (*models.Task, error) {
	var task *models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = findOwned(tx, id, userID)
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func findOwned(db *gorm.DB, id, userID string) (*models.Task, error) {
	var task models.Task
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
