package recordstore

import (
	"sync"
	"time"
)

type AuthEventKind string

const (
	SignedIn  AuthEventKind = "SIGNED_IN"
	SignedOut AuthEventKind = "SIGNED_OUT"
)

type AuthEvent struct {
	Kind   AuthEventKind
	UserID string
	At     time.Time
}

// AuthEvents notifies listeners of sign-in and sign-out. Listeners run
// synchronously on the emitting goroutine in registration order.
type AuthEvents struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(AuthEvent)
	order     []int
}

func NewAuthEvents() *AuthEvents {
	return &AuthEvents{listeners: make(map[int]func(AuthEvent))}
}

// OnChange registers fn and returns a function that removes it.
func (a *AuthEvents) OnChange(fn func(AuthEvent)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.order = append(a.order, id)
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			for i, v := range a.order {
				if v == id {
					a.order = append(a.order[:i], a.order[i+1:]...)
					break
				}
			}
			a.mu.Unlock()
		})
	}
}

func (a *AuthEvents) Emit(ev AuthEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	a.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(a.order))
	for _, id := range a.order {
		fns = append(fns, a.listeners[id])
	}
	a.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
