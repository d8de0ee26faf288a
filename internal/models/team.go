package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team groups the members working on one project.
type Team struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"size:2000" json:"description"`

	ProjectID string       `gorm:"uniqueIndex;size:36;not null" json:"project_id"`
	Project   *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Members   []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Team) TableName() string { return "teams" }

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TeamMember represents a user's membership and role within a team.
type TeamMember struct {
	ID       string   `gorm:"primaryKey;size:36" json:"id"`
	TeamID   string   `gorm:"uniqueIndex:idx_team_user;size:36;not null" json:"team_id"`
	Team     *Team    `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	UserID   string   `gorm:"uniqueIndex:idx_team_user;size:36;not null" json:"user_id"`
	User     *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role     TeamRole `gorm:"size:50;default:member" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TeamMember) TableName() string { return "team_members" }

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
