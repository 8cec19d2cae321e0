package courses

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/catalog/internal/apperr"
)

// CreateRequest is the body of a course creation.
type CreateRequest struct {
	Title           string `json:"title"`
	Instructor      string `json:"instructor"`
	Description     string `json:"description"`
	Image           string `json:"image" validate:"omitempty,url"`
	InstructorImage string `json:"instructorimage" validate:"omitempty,url"`
	Price           Amount `json:"price"`
	OriginalPrice   Amount `json:"originalprice"`
	Category        string `json:"category"`
	Duration        string `json:"duration"`
	Level           string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced 'All Levels'"`
	Lessons         int    `json:"lessons" validate:"gte=0"`
	Content         string `json:"content"`
}

// UpdateRequest is the body of a course update. Nil fields are left as they
// are.
type UpdateRequest struct {
	ID              string  `json:"id"`
	Title           *string `json:"title"`
	Instructor      *string `json:"instructor"`
	Description     *string `json:"description"`
	Image           *string `json:"image" validate:"omitempty,url"`
	InstructorImage *string `json:"instructorimage" validate:"omitempty,url"`
	Price           Amount  `json:"price"`
	OriginalPrice   Amount  `json:"originalprice"`
	Category        *string `json:"category"`
	Duration        *string `json:"duration"`
	Level           *string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced 'All Levels'"`
	Lessons         *int    `json:"lessons" validate:"omitempty,gte=0"`
	Content         *string `json:"content"`
}

func (r *CreateRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Instructor = strings.TrimSpace(r.Instructor)
	r.Category = strings.TrimSpace(r.Category)
	r.Image = strings.TrimSpace(r.Image)
	r.InstructorImage = strings.TrimSpace(r.InstructorImage)
}

func (r *UpdateRequest) normalize() {
	r.ID = strings.TrimSpace(r.ID)
	for _, p := range []*string{r.Title, r.Instructor, r.Category, r.Image, r.InstructorImage} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func validateAmount(field string, a Amount) error {
	if a.Invalid || (a.Present && !finite(a.Value)) {
		return apperr.Validation(field, field+" must be a number")
	}
	if a.Present && a.Value < 0 {
		return apperr.Validation(field, field+" must not be negative")
	}
	return nil
}

// structError converts the first validator failure into a ValidationError.
func structError(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "url":
			return apperr.Validation(field, field+" must be a valid URL")
		case "oneof":
			return apperr.Validation(field, "level must be one of Beginner, Intermediate, Advanced, All Levels")
		default:
			return apperr.Validation(field, "Invalid "+field)
		}
	}
	return apperr.Validation("", err.Error())
}
