package models

import (
	"strings"
	"time"
)

// IdentityMetadata is free-form data supplied at signup.
type IdentityMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

type Identity struct {
	ID           string           `gorm:"type:varchar(36);primarykey" json:"id"`
	Email        string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string           `gorm:"type:varchar(255);not null" json:"-"`
	Metadata     IdentityMetadata `gorm:"type:text;serializer:json" json:"user_metadata"`
	ConfirmedAt  *time.Time       `json:"email_confirmed_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Confirmed reports whether the identity's email address has been verified.
func (i *Identity) Confirmed() bool {
	return i.ConfirmedAt != nil
}

// LocalPart returns the part of the email address before '@'.
func (i *Identity) LocalPart() string {
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}
