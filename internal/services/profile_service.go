package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/storage"
	"github.com/yukikurage/taskmaster/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoAvatarFile    = errors.New("you must select an image to upload")
	ErrAvatarTooLarge  = errors.New("avatar exceeds the maximum size")
	ErrAvatarNotImage  = errors.New("avatar is not an image")
)

// ProfileService manages profiles and avatar uploads.
type ProfileService struct {
	profiles repository.ProfileRepository
	store    storage.ObjectStore
	log      logging.Logger
	now      func() time.Time
}

func NewProfileService(profiles repository.ProfileRepository, store storage.ObjectStore, log logging.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		store:    store,
		log:      log.With("component", "profiles"),
		now:      time.Now,
	}
}

// EnsureProfile creates the identity's profile unless it already exists.
// The insert is a single conditional write, so concurrent sign-ins cannot
// create duplicates.
func (s *ProfileService) EnsureProfile(ctx context.Context, identity *models.Identity) (bool, error) {
	username := identity.LocalPart()
	fullName := strings.TrimSpace(identity.Metadata.FullName)
	if fullName == "" {
		fullName = username
	}

	created, err := s.profiles.CreateIfAbsent(ctx, &models.Profile{
		ID:        identity.ID,
		Username:  username,
		FullName:  fullName,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to provision profile: %w", err)
	}
	return created, nil
}

// HandleAuthEvent provisions a profile on sign-in. Register it with
// AuthService.OnAuthStateChange.
func (s *ProfileService) HandleAuthEvent(ctx context.Context, event AuthEvent) {
	if event.Type != AuthSignedIn || event.Identity == nil {
		return
	}

	created, err := s.EnsureProfile(ctx, event.Identity)
	if err != nil {
		s.log.Error(ctx, "profile provisioning failed", "user_id", event.Identity.ID, "error", err)
		return
	}
	if created {
		s.log.Info(ctx, "profile created", "user_id", event.Identity.ID)
	}
}

// GetProfile returns the user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// SaveProfileInput holds the editable profile fields.
type SaveProfileInput struct {
	Username string
	FullName string
}

// SaveProfile writes username and full name and stamps updated_at.
func (s *ProfileService) SaveProfile(ctx context.Context, userID string, input SaveProfileInput) (*models.Profile, error) {
	return s.update(ctx, userID, map[string]interface{}{
		"username":   strings.TrimSpace(input.Username),
		"full_name":  strings.TrimSpace(input.FullName),
		"updated_at": s.now().UTC(),
	})
}

// AvatarUpload is an image chosen by the user. Size is the declared size;
// the body is still capped while reading.
type AvatarUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// UploadAvatar stores the image, then points the profile at its public URL.
// If the profile cannot be updated the stored object is removed again.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, upload AvatarUpload) (*models.Profile, error) {
	if upload.Body == nil || upload.Filename == "" || upload.Size == 0 {
		return nil, ErrNoAvatarFile
	}
	if upload.Size > constants.MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, constants.MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(data) > constants.MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}

	// The declared content type is not trusted.
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, ErrAvatarNotImage
	}

	key, err := utils.AvatarObjectKey(userID, upload.Filename)
	if err != nil {
		return nil, err
	}

	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mime.String()); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	profile, err := s.update(ctx, userID, map[string]interface{}{
		"avatar_url": s.store.PublicURL(key),
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error(ctx, "failed to remove orphaned avatar", "key", key, "error", delErr)
		}
		return nil, err
	}

	return profile, nil
}

func (s *ProfileService) update(ctx context.Context, userID string, updates map[string]interface{}) (*models.Profile, error) {
	profile, err := s.profiles.Update(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}
