package comments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

const (
	MsgLoginToComment = "Please log in to comment."
	MsgPostFailed     = "Failed to post comment."
	AnonymousName     = "Anonymous"
)

// ErrBlankComment rejects a comment that is empty after trimming.
var ErrBlankComment = apperr.Validation("content", "Comment cannot be empty")

type CommentStore interface {
	Select(ctx context.Context, q *recordstore.Query) ([]entities.Comment, error)
	Insert(ctx context.Context, rows ...entities.Comment) ([]entities.Comment, error)
}

type ProfileStore interface {
	Select(ctx context.Context, q *recordstore.Query) ([]entities.Profile, error)
}

// Subscriber opens change subscriptions.
type Subscriber interface {
	Subscribe(filter recordstore.ChangeFilter, handler func(recordstore.Change)) (*recordstore.Subscription, error)
}

// Entry is a comment joined with its author's profile.
type Entry struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Ago         string    `json:"ago"`
}

type Options struct {
	AvatarBucket       string
	ProfileConcurrency int
	Timeout            time.Duration
}

// Manager reads and posts course comment threads.
type Manager struct {
	comments    CommentStore
	profiles    ProfileStore
	subscriber  Subscriber
	assets      recordstore.AssetResolver
	bucket      string
	concurrency int
	timeout     time.Duration
	log         *logger.Logger
	now         func() time.Time
}

func NewManager(comments CommentStore, profiles ProfileStore, subscriber Subscriber, assets recordstore.AssetResolver, opts Options, log *logger.Logger) *Manager {
	concurrency := opts.ProfileConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Manager{
		comments:    comments,
		profiles:    profiles,
		subscriber:  subscriber,
		assets:      assets,
		bucket:      opts.AvatarBucket,
		concurrency: concurrency,
		timeout:     opts.Timeout,
		log:         log,
		now:         time.Now,
	}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Fetch returns the thread of courseID, newest first.
func (m *Manager) Fetch(ctx context.Context, courseID string) ([]Entry, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	q := recordstore.Eq("course_id", courseID).OrderBy("created_at", recordstore.Descending)
	rows, err := m.comments.Select(ctx, q)
	if err != nil {
		m.log.Error("failed to fetch comments", "course_id", courseID, "error", err)
		return nil, apperr.Store("fetch comments", err)
	}

	profiles, err := m.resolveProfiles(ctx, rows)
	if err != nil {
		return nil, apperr.Store("fetch profiles", err)
	}

	now := m.now()
	entries := make([]Entry, 0, len(rows))
	for _, c := range rows {
		e := Entry{
			ID:          c.ID,
			CourseID:    c.CourseID,
			UserID:      c.UserID,
			Content:     c.Content,
			CreatedAt:   c.CreatedAt,
			DisplayName: AnonymousName,
			Ago:         RelativeTime(c.CreatedAt, now),
		}
		if p, ok := profiles[c.UserID]; ok {
			e.Email = p.Email
			if name := strings.TrimSpace(p.FullName); name != "" {
				e.DisplayName = name
			}
			if p.AvatarURL != nil && m.assets != nil {
				e.AvatarURL = m.assets.PublicURL(m.bucket, *p.AvatarURL)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// resolveProfiles looks up each distinct author once, in parallel. A failed
// lookup counts as a missing profile unless the context is done.
func (m *Manager) resolveProfiles(ctx context.Context, rows []entities.Comment) (map[string]entities.Profile, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, c := range rows {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}

	var mu sync.Mutex
	profiles := make(map[string]entities.Profile, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			found, err := m.profiles.Select(gctx, recordstore.Eq("id", id).Limit(1))
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				m.log.Warn("failed to resolve profile", "user_id", id, "error", err)
				return nil
			}
			if len(found) > 0 {
				mu.Lock()
				profiles[id] = found[0]
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Post adds a comment by the current user and returns the refreshed thread.
func (m *Manager) Post(ctx context.Context, courseID, text string) ([]Entry, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrBlankComment
	}
	userID, ok := recordstore.CurrentUserID(ctx)
	if !ok {
		return nil, apperr.ErrAuthRequired
	}

	insertCtx, cancel := m.withTimeout(ctx)
	_, err := m.comments.Insert(insertCtx, entities.Comment{
		CourseID: courseID,
		UserID:   userID,
		Content:  content,
	})
	cancel()
	if err != nil {
		m.log.Warn("failed to post comment", "course_id", courseID, "user_id", userID, "error", err)
		return nil, &apperr.StoreError{Op: "post comment", Message: MsgPostFailed, Err: err}
	}

	return m.Fetch(ctx, courseID)
}
