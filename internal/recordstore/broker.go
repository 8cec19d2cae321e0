package recordstore

import (
	"context"
	"errors"
	"sync"

	"github.com/mrlokans/catalog/internal/logger"
)

// subscriptionBuffer bounds pending deliveries per subscriber.
const subscriptionBuffer = 64

// Publisher receives committed changes.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Broker fans changes out to filtered subscribers.
type Broker interface {
	Publisher
	Subscribe(filter ChangeFilter, handler func(Change)) (*Subscription, error)
	Close() error
}

// Subscription is a live registration with a broker. Handlers run on the
// subscription's own goroutine in delivery order. Close releases it and is
// safe to call more than once, including from inside the handler.
type Subscription struct {
	filter  ChangeFilter
	handler func(Change)
	events  chan Change
	done    chan struct{}
	once    sync.Once
	release func(*Subscription)
}

func newSubscription(filter ChangeFilter, handler func(Change), release func(*Subscription)) *Subscription {
	s := &Subscription{
		filter:  filter,
		handler: handler,
		events:  make(chan Change, subscriptionBuffer),
		done:    make(chan struct{}),
		release: release,
	}
	go s.run()
	return s
}

func (s *Subscription) Filter() ChangeFilter {
	return s.filter
}

// Done is closed once the subscription is released.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release(s)
		}
		close(s.done)
	})
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(c)
		}
	}
}

func (s *Subscription) deliver(c Change) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.events <- c:
		return true
	default:
		return false
	}
}

// MemoryBroker delivers changes to subscribers in the same process.
type MemoryBroker struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewMemoryBroker(log *logger.Logger) *MemoryBroker {
	return &MemoryBroker{
		log:  log.With("service", "MemoryBroker"),
		subs: make(map[*Subscription]struct{}),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, c Change) error {
	b.dispatch(c)
	return nil
}

func (b *MemoryBroker) dispatch(c Change) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		if s.filter.Matches(c) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if !s.deliver(c) {
			b.log.Warn("dropping change for slow subscriber", "filter", s.filter.String(), "table", c.Table)
		}
	}
}

func (b *MemoryBroker) Subscribe(filter ChangeFilter, handler func(Change)) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("change handler required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	s := newSubscription(filter, handler, b.remove)
	b.subs[s] = struct{}{}
	return s, nil
}

func (b *MemoryBroker) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close releases every subscription. Later Subscribe calls fail.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}
