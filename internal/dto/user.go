package dto

import (
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
)

// UserDTO represents an identity in API responses
type UserDTO struct {
	ID               string                  `json:"id"`
	Email            string                  `json:"email"`
	UserMetadata     models.IdentityMetadata `json:"user_metadata"`
	EmailConfirmedAt *time.Time              `json:"email_confirmed_at"`
	CreatedAt        time.Time               `json:"created_at"`
}

// SignupResponse is returned by signup. Exactly one of the two shapes is
// used: pending with Email set, or not pending with User set.
type SignupResponse struct {
	ConfirmationPending bool     `json:"confirmation_pending"`
	Email               string   `json:"email,omitempty"`
	User                *UserDTO `json:"user,omitempty"`
	RedirectDelayMS     int64    `json:"redirect_delay_ms,omitempty"`
}

// SessionResponse carries the current user, or null when signed out
type SessionResponse struct {
	User *UserDTO `json:"user"`
}

// ConfirmResponse tells the client where to go after a confirmed email
type ConfirmResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
	DelayMS  int64  `json:"delay_ms"`
}

// ToUserDTO converts an Identity model to UserDTO
func ToUserDTO(identity models.Identity) UserDTO {
	return UserDTO{
		ID:               identity.ID,
		Email:            identity.Email,
		UserMetadata:     identity.Metadata,
		EmailConfirmedAt: identity.ConfirmedAt,
		CreatedAt:        identity.CreatedAt,
	}
}
