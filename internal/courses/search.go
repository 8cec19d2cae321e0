package courses

import (
	"strings"

	"github.com/mrlokans/catalog/internal/entities"
)

// Search filters list by a case-insensitive match on title, description or
// instructor. A blank term returns list unchanged.
func Search(list []entities.Course, term string) []entities.Course {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	matched := []entities.Course{}
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Title), term) ||
			strings.Contains(strings.ToLower(c.Description), term) ||
			strings.Contains(strings.ToLower(c.Instructor), term) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Detail is the course detail view.
type Detail struct {
	Course         entities.Course `json:"course"`
	Discount       int             `json:"discount"`
	LearningPoints []string        `json:"learning_points"`
}

func NewDetail(c entities.Course) Detail {
	return Detail{
		Course:         c,
		Discount:       c.Discount(),
		LearningPoints: c.LearningPoints(),
	}
}
