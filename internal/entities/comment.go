package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CourseID  string    `gorm:"index;size:36;not null" json:"course_id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Profile is the public face of a user, keyed by the user's id.
type Profile struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	Email     string  `gorm:"size:255" json:"email"`
	FullName  string  `gorm:"size:255" json:"full_name"`
	AvatarURL *string `gorm:"column:avatar_url;size:2048" json:"avatar_url"`
}

func (Profile) TableName() string {
	return "profiles"
}
