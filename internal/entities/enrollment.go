package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment joins a user and a course. Existence is the only signal; the
// wishlist and the enrollment list are the same relation.
type Enrollment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"uniqueIndex:idx_enrollments_user_course;size:36;not null" json:"user_id"`
	CourseID   string    `gorm:"uniqueIndex:idx_enrollments_user_course;index;size:36;not null" json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now()
	}
	return nil
}
