package entities

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "Beginner"
	CourseLevelIntermediate CourseLevel = "Intermediate"
	CourseLevelAdvanced     CourseLevel = "Advanced"
	CourseLevelAll          CourseLevel = "All Levels"
)

// CourseLevels lists the accepted level values in display order.
var CourseLevels = []CourseLevel{
	CourseLevelBeginner,
	CourseLevelIntermediate,
	CourseLevelAdvanced,
	CourseLevelAll,
}

// Course is a catalog entry. Column and JSON names match the persisted
// lowercase schema.
type Course struct {
	ID              string      `gorm:"primaryKey;size:36" json:"id"`
	Title           string      `gorm:"index;size:512;not null" json:"title"`
	Instructor      string      `gorm:"size:256;not null" json:"instructor"`
	Description     string      `gorm:"type:text" json:"description"`
	Image           string      `gorm:"size:2048" json:"image"`
	InstructorImage string      `gorm:"column:instructorimage;size:2048" json:"instructorimage"`
	Price           float64     `gorm:"not null" json:"price"`
	OriginalPrice   *float64    `gorm:"column:originalprice" json:"originalprice"`
	Category        string      `gorm:"index;size:128;not null" json:"category"`
	Duration        string      `gorm:"size:128" json:"duration"`
	Level           CourseLevel `gorm:"size:32" json:"level"`
	Lessons         int         `json:"lessons"`
	Content         string      `gorm:"type:text" json:"content"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Discount returns the rounded discount percentage against the original
// price, or 0 when there is no original price.
func (c Course) Discount() int {
	if c.OriginalPrice == nil || *c.OriginalPrice <= 0 {
		return 0
	}
	orig := *c.OriginalPrice
	d := math.Round((orig - c.Price) / orig * 100)
	if d < 0 {
		return 0
	}
	return int(d)
}

// LearningPoints returns the bullet lines of Content, trimmed.
func (c Course) LearningPoints() []string {
	points := []string{}
	for _, line := range strings.Split(c.Content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			points = append(points, line)
		}
	}
	return points
}
