package transaction

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/baely/bezos/internal/common/errors"
)

// ErrSubscriptionClosed is returned by Next once the subscription is closed
var ErrSubscriptionClosed = errors.New("subscription closed")

// Publisher delivers an update to everyone listening on event
type Publisher interface {
	Publish(event string, update Update)
}

// Broker is an in-process fan-out of updates keyed by event name
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]*Subscription
	logger *slog.Logger
}

// NewBroker creates an empty broker
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		topics: make(map[string]map[uuid.UUID]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new listener for event.
// The subscription sees every update published after this call returns.
func (b *Broker) Subscribe(event string) *Subscription {
	s := &Subscription{
		id:     uuid.New(),
		event:  event,
		broker: b,
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	subs, ok := b.topics[event]
	if !ok {
		subs = make(map[uuid.UUID]*Subscription)
		b.topics[event] = subs
	}
	subs[s.id] = s
	b.mu.Unlock()

	b.logger.Debug("Subscriber registered", "event", event, "subscription", s.id)
	return s
}

// Publish queues update on every current subscription to event. It never blocks on readers.
func (b *Broker) Publish(event string, update Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.topics[event] {
		s.push(update)
	}
	b.logger.Debug("Published update", "event", event, "subscribers", len(b.topics[event]))
}

// Len returns the number of live subscriptions to event
func (b *Broker) Len(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[event])
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[s.event]
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(b.topics, s.event)
	}
	b.logger.Debug("Subscriber removed", "event", s.event, "subscription", s.id)
}

// Subscription is a live handle yielding published updates in order
type Subscription struct {
	id     uuid.UUID
	event  string
	broker *Broker

	mu    sync.Mutex
	queue []Update
	ready chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// ID identifies the subscription
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Next waits for the next update. It returns ctx.Err() if ctx ends first
// and ErrSubscriptionClosed after Close.
func (s *Subscription) Next(ctx context.Context) (Update, error) {
	for {
		select {
		case <-s.done:
			return Update{}, ErrSubscriptionClosed
		default:
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			u := s.queue[0]
			s.queue[0] = Update{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return u, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
			return Update{}, ErrSubscriptionClosed
		case <-ctx.Done():
			return Update{}, ctx.Err()
		}
	}
}

// Close unregisters the subscription and discards anything still queued. Safe to call twice.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
		close(s.done)

		s.mu.Lock()
		s.queue = nil
		s.mu.Unlock()
	})
}

func (s *Subscription) push(u Update) {
	s.mu.Lock()
	s.queue = append(s.queue, u)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}
