package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/utils"
)

// IdentityRepository defines the interface for identity data access
type IdentityRepository interface {
	// Create creates a new identity
	Create(ctx context.Context, identity *models.Identity) error

	// FindByID finds an identity by ID
	FindByID(ctx context.Context, id string) (*models.Identity, error)

	// FindByEmail finds an identity by email address
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)

	// MarkConfirmed sets confirmed_at if it is not already set
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// CreateIfAbsent inserts the profile unless one with the same ID exists.
	// It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, profile *models.Profile) (bool, error)

	// FindByID finds a profile by ID
	FindByID(ctx context.Context, id string) (*models.Profile, error)

	// Update applies column updates to the profile with the given ID
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Profile, error)
}

// TaskRepository defines the interface for task data access.
// Every lookup and mutation is scoped to the owning user.
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// ListByOwner lists the owner's tasks, newest first
	ListByOwner(ctx context.Context, userID string, page utils.PaginationParams) ([]models.Task, int64, error)

	// FindOwned finds a task by ID and owner
	FindOwned(ctx context.Context, id, userID string) (*models.Task, error)

	// UpdateOwned applies column updates to the owner's task and returns it
	UpdateOwned(ctx context.Context, id, userID string, updates map[string]interface{}) (*models.Task, error)

	// DeleteOwned deletes the owner's task and returns the removed row
	DeleteOwned(ctx context.Context, id, userID string) (*models.Task, error)
}
