package enrollment

import "sync"

// CountObserver receives the wishlist count of one user. Only the latest
// value is kept when the reader falls behind.
type CountObserver struct {
	userID  string
	ch      chan int64
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	release func(*CountObserver)
}

func newCountObserver(userID string, release func(*CountObserver)) *CountObserver {
	return &CountObserver{
		userID:  userID,
		ch:      make(chan int64, 1),
		release: release,
	}
}

// C returns the channel counts are delivered on. It is closed by Close.
func (o *CountObserver) C() <-chan int64 {
	return o.ch
}

func (o *CountObserver) UserID() string {
	return o.userID
}

// Close stops delivery and releases the observer. Safe to call repeatedly.
func (o *CountObserver) Close() {
	o.once.Do(func() {
		o.release(o)
		o.mu.Lock()
		o.closed = true
		close(o.ch)
		o.mu.Unlock()
	})
}

func (o *CountObserver) send(count int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case <-o.ch:
	default:
	}
	o.ch <- count
}
