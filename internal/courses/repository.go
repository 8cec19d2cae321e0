package courses

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

const (
	MsgMissingFields = "Missing required fields"
	MsgIDRequired    = "Course ID is required"
	MsgNotUpdated    = "No rows updated: course not found or not permitted"
	MsgNotDeleted    = "No rows deleted: course not found or not permitted"
)

// ErrNotFound is returned by Get for unknown or malformed ids.
var ErrNotFound = errors.New("course not found")

// Store is the slice of the courses table the repository needs.
type Store interface {
	Select(ctx context.Context, q *recordstore.Query) ([]entities.Course, error)
	Insert(ctx context.Context, rows ...entities.Course) ([]entities.Course, error)
	Update(ctx context.Context, values map[string]any, q *recordstore.Query) ([]entities.Course, error)
	Delete(ctx context.Context, q *recordstore.Query) ([]entities.Course, error)
}

// Repository validates course requests and maps them onto the store.
type Repository struct {
	store    Store
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

func NewRepository(store Store, log *logger.Logger) *Repository {
	return &Repository{
		store:    store,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// List returns every course ordered by title.
func (r *Repository) List(ctx context.Context) ([]entities.Course, error) {
	rows, err := r.store.Select(ctx, recordstore.NewQuery().OrderBy("title", recordstore.Ascending))
	if err != nil {
		r.log.Error("failed to list courses", "error", err)
		return nil, apperr.Store("list", err)
	}
	return rows, nil
}

// Get returns one course by id.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.store.Select(ctx, recordstore.Eq("id", id).Limit(1))
	if err != nil {
		r.log.Error("failed to get course", "id", id, "error", err)
		return nil, apperr.Store("get", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// FindByIDs returns the courses with the given ids, ordered by title.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]entities.Course, error) {
	rows, err := r.store.Select(ctx, recordstore.NewQuery().In("id", ids).OrderBy("title", recordstore.Ascending))
	if err != nil {
		return nil, apperr.Store("list", err)
	}
	return rows, nil
}

// Create validates req and inserts a new course.
func (r *Repository) Create(ctx context.Context, req CreateRequest) (*entities.Course, error) {
	req.normalize()
	if err := validateAmount("price", req.Price); err != nil {
		return nil, err
	}
	if err := validateAmount("originalprice", req.OriginalPrice); err != nil {
		return nil, err
	}
	if req.Title == "" || req.Instructor == "" || req.Category == "" || !req.Price.NonZero() {
		return nil, apperr.Validation("", MsgMissingFields)
	}
	if err := structError(r.validate.Struct(req)); err != nil {
		return nil, err
	}

	course := entities.Course{
		Title:           req.Title,
		Instructor:      req.Instructor,
		Description:     req.Description,
		Image:           req.Image,
		InstructorImage: req.InstructorImage,
		Price:           req.Price.Value,
		Category:        req.Category,
		Duration:        req.Duration,
		Level:           entities.CourseLevel(req.Level),
		Lessons:         req.Lessons,
		Content:         req.Content,
	}
	if req.OriginalPrice.NonZero() {
		v := req.OriginalPrice.Value
		course.OriginalPrice = &v
	}

	rows, err := r.store.Insert(ctx, course)
	if err != nil {
		r.log.Error("failed to create course", "title", course.Title, "error", err)
		return nil, apperr.Store("create", err)
	}
	if len(rows) == 0 {
		return nil, apperr.ZeroRows("create", "No rows inserted")
	}
	r.log.Info("course created", "id", rows[0].ID, "title", rows[0].Title)
	return &rows[0], nil
}

// Update overwrites the present fields of the course req.ID.
func (r *Repository) Update(ctx context.Context, req UpdateRequest) (*entities.Course, error) {
	req.normalize()
	if req.ID == "" {
		return nil, apperr.Validation("id", MsgIDRequired)
	}
	if err := validateAmount("price", req.Price); err != nil {
		return nil, err
	}
	if err := validateAmount("originalprice", req.OriginalPrice); err != nil {
		return nil, err
	}
	if err := structError(r.validate.Struct(req)); err != nil {
		return nil, err
	}

	values, err := req.values()
	if err != nil {
		return nil, err
	}
	values["updated_at"] = r.now()

	rows, err := r.store.Update(ctx, values, recordstore.Eq("id", req.ID))
	if err != nil {
		r.log.Error("failed to update course", "id", req.ID, "error", err)
		return nil, apperr.Store("update", err)
	}
	if len(rows) == 0 {
		return nil, apperr.ZeroRows("update", MsgNotUpdated)
	}
	return &rows[0], nil
}

// Delete removes the course id and returns it.
func (r *Repository) Delete(ctx context.Context, id string) (*entities.Course, error) {
	if id == "" {
		return nil, apperr.Validation("id", MsgIDRequired)
	}
	rows, err := r.store.Delete(ctx, recordstore.Eq("id", id))
	if err != nil {
		r.log.Error("failed to delete course", "id", id, "error", err)
		return nil, apperr.Store("delete", err)
	}
	if len(rows) == 0 {
		return nil, apperr.ZeroRows("delete", MsgNotDeleted)
	}
	r.log.Info("course deleted", "id", id)
	return &rows[0], nil
}

// values maps the present fields of req to columns.
func (req UpdateRequest) values() (map[string]any, error) {
	values := map[string]any{}
	required := []struct {
		column string
		value  *string
	}{
		{"title", req.Title},
		{"instructor", req.Instructor},
		{"category", req.Category},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		if *f.value == "" {
			return nil, apperr.Validation(f.column, f.column+" must not be empty")
		}
		values[f.column] = *f.value
	}

	optional := map[string]*string{
		"description":     req.Description,
		"image":           req.Image,
		"instructorimage": req.InstructorImage,
		"duration":        req.Duration,
		"level":           req.Level,
		"content":         req.Content,
	}
	for column, v := range optional {
		if v != nil {
			values[column] = *v
		}
	}
	if req.Lessons != nil {
		values["lessons"] = *req.Lessons
	}
	if req.Price.NonZero() {
		values["price"] = req.Price.Value
	}
	if req.OriginalPrice.NonZero() {
		values["originalprice"] = req.OriginalPrice.Value
	}
	return values, nil
}
