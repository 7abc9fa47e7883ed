package models

import "time"

// Profile holds user-editable metadata. Its ID is the owning Identity's ID.
type Profile struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Username  string    `gorm:"type:varchar(255)" json:"username"`
	FullName  string    `gorm:"type:varchar(255)" json:"full_name"`
	AvatarURL string    `gorm:"type:varchar(1024)" json:"avatar_url"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}
