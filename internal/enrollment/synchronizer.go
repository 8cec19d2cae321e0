package enrollment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

const (
	MsgEnrolled     = "Enrolled successfully!"
	MsgUnenrolled   = "You have unenrolled from the course."
	MsgLoginFirst   = "Please log in first."
	MsgToggleFailed = "Failed to update enrollment."
)

type State int

const (
	StateUnknown State = iota
	StateNotEnrolled
	StateEnrolled
)

func (s State) String() string {
	switch s {
	case StateNotEnrolled:
		return "not_enrolled"
	case StateEnrolled:
		return "enrolled"
	default:
		return "unknown"
	}
}

// EnrollmentStore is the slice of the enrollments table the synchronizer
// needs.
type EnrollmentStore interface {
	Select(ctx context.Context, q *recordstore.Query) ([]entities.Enrollment, error)
	Count(ctx context.Context, q *recordstore.Query) (int64, error)
	Insert(ctx context.Context, rows ...entities.Enrollment) ([]entities.Enrollment, error)
	Delete(ctx context.Context, q *recordstore.Query) ([]entities.Enrollment, error)
}

// CourseLookup resolves enrolled course ids to courses.
type CourseLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]entities.Course, error)
}

// Result is the outcome of a toggle. Count is nil when the recount after a
// successful toggle failed.
type Result struct {
	State    State  `json:"-"`
	Enrolled bool   `json:"enrolled"`
	Message  string `json:"message"`
	Count    *int64 `json:"count,omitempty"`
}

// Synchronizer keeps a user's enrollment set consistent with the store and
// pushes the derived wishlist count to observers.
type Synchronizer struct {
	store   EnrollmentStore
	courses CourseLookup
	timeout time.Duration
	log     *logger.Logger
	locks   *keyLocks
	now     func() time.Time

	mu        sync.Mutex
	observers map[string]map[*CountObserver]struct{}
}

// NewSynchronizer creates a Synchronizer. A zero timeout disables the
// per-call deadline.
func NewSynchronizer(store EnrollmentStore, lookup CourseLookup, timeout time.Duration, log *logger.Logger) *Synchronizer {
	return &Synchronizer{
		store:     store,
		courses:   lookup,
		timeout:   timeout,
		log:       log,
		locks:     newKeyLocks(),
		now:       time.Now,
		observers: make(map[string]map[*CountObserver]struct{}),
	}
}

func (s *Synchronizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func enrollmentQuery(userID, courseID string) *recordstore.Query {
	return recordstore.Eq("user_id", userID).Eq("course_id", courseID)
}

// Check reports whether the current user is enrolled in courseID. Without a
// user it fails closed to StateNotEnrolled.
func (s *Synchronizer) Check(ctx context.Context, courseID string) (State, error) {
	userID, ok := recordstore.CurrentUserID(ctx)
	if !ok {
		return StateNotEnrolled, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.check(ctx, userID, courseID)
}

func (s *Synchronizer) check(ctx context.Context, userID, courseID string) (State, error) {
	rows, err := s.store.Select(ctx, enrollmentQuery(userID, courseID).Limit(1))
	if err != nil {
		return StateUnknown, apperr.Store("check enrollment", err)
	}
	if len(rows) > 0 {
		return StateEnrolled, nil
	}
	return StateNotEnrolled, nil
}

// Toggle flips the current user's enrollment in courseID. Toggles for the
// same user and course run one at a time; a queued toggle sees the state the
// previous one left behind.
func (s *Synchronizer) Toggle(ctx context.Context, courseID string) (Result, error) {
	userID, ok := recordstore.CurrentUserID(ctx)
	if !ok {
		return Result{State: StateUnknown, Message: MsgLoginFirst}, apperr.ErrAuthRequired
	}

	unlock, err := s.locks.lock(ctx, userID+"/"+courseID)
	if err != nil {
		return Result{State: StateUnknown, Message: MsgToggleFailed}, err
	}
	defer unlock()

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.check(opCtx, userID, courseID)
	if err != nil {
		s.log.Warn("failed to check enrollment before toggle", "user_id", userID, "course_id", courseID, "error", err)
		return Result{State: StateUnknown, Message: MsgToggleFailed}, err
	}

	var result Result
	if current == StateEnrolled {
		if _, err := s.store.Delete(opCtx, enrollmentQuery(userID, courseID)); err != nil {
			s.log.Warn("failed to unenroll", "user_id", userID, "course_id", courseID, "error", err)
			return Result{State: current, Enrolled: true, Message: MsgToggleFailed}, apperr.Store("unenroll", err)
		}
		result = Result{State: StateNotEnrolled, Enrolled: false, Message: MsgUnenrolled}
	} else {
		row := entities.Enrollment{UserID: userID, CourseID: courseID, EnrolledAt: s.now()}
		if _, err := s.store.Insert(opCtx, row); err != nil {
			s.log.Warn("failed to enroll", "user_id", userID, "course_id", courseID, "error", err)
			return Result{State: current, Message: MsgToggleFailed}, apperr.Store("enroll", err)
		}
		result = Result{State: StateEnrolled, Enrolled: true, Message: MsgEnrolled}
	}

	count, err := s.count(opCtx, userID)
	if err != nil {
		s.log.Warn("failed to recount wishlist", "user_id", userID, "error", err)
		return result, nil
	}
	s.broadcast(userID, count)
	result.Count = &count
	return result, nil
}

// Count returns the current user's wishlist size, or 0 without a user.
func (s *Synchronizer) Count(ctx context.Context) (int64, error) {
	userID, ok := recordstore.CurrentUserID(ctx)
	if !ok {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.count(ctx, userID)
}

func (s *Synchronizer) count(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.Count(ctx, recordstore.Eq("user_id", userID))
	if err != nil {
		return 0, apperr.Store("count enrollments", err)
	}
	return n, nil
}

// Wishlist returns the current user's enrolled courses matching term.
func (s *Synchronizer) Wishlist(ctx context.Context, term string) ([]entities.Course, error) {
	userID, ok := recordstore.CurrentUserID(ctx)
	if !ok {
		return nil, apperr.ErrAuthRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.store.Select(ctx, recordstore.Eq("user_id", userID).OrderBy("enrolled_at", recordstore.Descending))
	if err != nil {
		return nil, apperr.Store("wishlist", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CourseID)
	}
	list, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("wishlist courses: %w", err)
	}
	return courses.Search(list, term), nil
}

// Observe registers an observer for userID's wishlist count. The caller must
// Close it.
func (s *Synchronizer) Observe(userID string) *CountObserver {
	o := newCountObserver(userID, s.removeObserver)
	s.mu.Lock()
	set, ok := s.observers[userID]
	if !ok {
		set = make(map[*CountObserver]struct{})
		s.observers[userID] = set
	}
	set[o] = struct{}{}
	s.mu.Unlock()
	return o
}

func (s *Synchronizer) removeObserver(o *CountObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.observers[o.userID]
	delete(set, o)
	if len(set) == 0 {
		delete(s.observers, o.userID)
	}
}

func (s *Synchronizer) broadcast(userID string, count int64) {
	s.mu.Lock()
	targets := make([]*CountObserver, 0, len(s.observers[userID]))
	for o := range s.observers[userID] {
		targets = append(targets, o)
	}
	s.mu.Unlock()

	for _, o := range targets {
		o.send(count)
	}
}

// HandleAuthEvent recomputes the count of the user whose session changed.
// A sign-out recounts too: the user's other sessions stay signed in and
// their streams must keep showing the stored count.
func (s *Synchronizer) HandleAuthEvent(ev recordstore.AuthEvent) {
	if ev.Kind != recordstore.SignedIn && ev.Kind != recordstore.SignedOut {
		return
	}
	ctx := recordstore.WithSession(context.Background(), recordstore.Session{UserID: ev.UserID, Role: recordstore.RoleMember})
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	count, err := s.count(ctx, ev.UserID)
	if err != nil {
		s.log.Warn("failed to recount wishlist", "user_id", ev.UserID, "event", ev.Kind, "error", err)
		return
	}
	s.broadcast(ev.UserID, count)
}
