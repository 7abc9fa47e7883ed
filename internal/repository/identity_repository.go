package repository

import (
	"context"
	"strings"
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
	"gorm.io/gorm"
)

// GormIdentityRepository is a GORM implementation of IdentityRepository
type GormIdentityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &GormIdentityRepository{db: db}
}

// Create creates a new identity
func (r *GormIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).Create(identity).Error
}

// FindByID finds an identity by ID
func (r *GormIdentityRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// FindByEmail finds an identity by email address, case-insensitively
func (r *GormIdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// MarkConfirmed sets confirmed_at if it is not already set
func (r *GormIdentityRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either already confirmed or unknown.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
