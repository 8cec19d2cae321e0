package comments

import (
	"context"
	"fmt"

	"github.com/mrlokans/catalog/internal/recordstore"
)

// Watch is a live view of one thread. Every new comment on the course
// triggers a full re-fetch delivered to the callback. Re-fetches run one at
// a time.
type Watch struct {
	sub  *recordstore.Subscription
	stop context.CancelFunc
}

// Watch subscribes to new comments on courseID. The returned handle is
// released by Close or when ctx is done.
func (m *Manager) Watch(ctx context.Context, courseID string, fn func([]Entry, error)) (*Watch, error) {
	ctx, stop := context.WithCancel(ctx)

	filter := recordstore.ChangeFilter{
		Table:  "comments",
		Event:  recordstore.EventInsert,
		Column: "course_id",
		Value:  courseID,
	}
	sub, err := m.subscriber.Subscribe(filter, func(recordstore.Change) {
		if ctx.Err() != nil {
			return
		}
		fn(m.Fetch(ctx, courseID))
	})
	if err != nil {
		stop()
		return nil, fmt.Errorf("watch comments: %w", err)
	}

	w := &Watch{sub: sub, stop: stop}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
			stop()
		}
	}()
	return w, nil
}

// Done is closed once the watch is released.
func (w *Watch) Done() <-chan struct{} {
	return w.sub.Done()
}

func (w *Watch) Close() {
	w.stop()
	w.sub.Close()
}
