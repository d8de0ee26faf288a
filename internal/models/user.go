package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a system user (the authenticated principal).
// The refresh token slot is a single field: issuing a new pair overwrites it,
// so at most one refresh credential is valid per user at any time.
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	RefreshToken          *string    `gorm:"size:255" json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`

	LastLogin *time.Time     `json:"last_login,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName returns the display name used in token claims and DTOs.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserRole assigns one application role to a user. A user holds a set of
// roles via multiple rows.
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_role;size:36;not null" json:"user_id"`
	Role      Role      `gorm:"uniqueIndex:idx_user_role;size:50;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string { return "user_roles" }
