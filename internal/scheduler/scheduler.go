package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Category groups reminders for display and logging.
type Category string

const (
	CategoryMeal    Category = "meal"
	CategoryWorkout Category = "workout"
)

const (
	defaultIcon            = "/icon.png"
	defaultDeliveryTimeout = 10 * time.Second
)

// Request asks for one reminder to be delivered at FireAt.
// ID is the registry key; a second request with the same ID replaces the first.
type Request struct {
	ID       string
	Title    string
	Body     string
	FireAt   time.Time
	Category Category
}

// Payload is what the delivery collaborator receives when a reminder fires.
type Payload struct {
	ID       string
	Title    string
	Body     string
	Icon     string
	Category Category
}

// Deliverer sends a fired reminder somewhere the user will see it.
// Telegram, Pushover and the delivery fan-out implement this.
type Deliverer interface {
	Deliver(ctx context.Context, p Payload) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, p Payload) error

func (f DelivererFunc) Deliver(ctx context.Context, p Payload) error { return f(ctx, p) }

// Pending describes a live registry entry.
type Pending struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category Category  `json:"category"`
	FireAt   time.Time `json:"fire_at"`
}

type entry struct {
	token string // distinguishes this arming from earlier ones under the same ID
	req   Request
	timer clockwork.Timer
}

// Scheduler is an in-memory registry of one-shot reminder timers keyed by ID.
// Entries live until they fire or are cancelled; nothing is persisted.
type Scheduler struct {
	clock     clockwork.Clock
	deliverer Deliverer
	log       *zap.Logger
	icon      string
	timeout   time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock; tests pass a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithIcon sets the icon sent with every payload.
func WithIcon(icon string) Option { return func(s *Scheduler) { s.icon = icon } }

// WithDeliveryTimeout bounds each delivery attempt.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates an empty Scheduler.
func New(deliverer Deliverer, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:     clockwork.NewRealClock(),
		deliverer: deliverer,
		log:       log,
		icon:      defaultIcon,
		timeout:   defaultDeliveryTimeout,
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms a timer for req and reports whether it did. A request whose
// FireAt is not in the future is dropped, never fired late. An existing entry
// with the same ID is cancelled first.
func (s *Scheduler) Schedule(req Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := req.FireAt.Sub(s.clock.Now())
	if delay <= 0 {
		s.log.Debug("notification skipped, fire time passed",
			zap.String("id", req.ID), zap.Time("fire_at", req.FireAt))
		return false
	}

	if prev, ok := s.entries[req.ID]; ok {
		prev.timer.Stop()
		delete(s.entries, req.ID)
		s.log.Debug("notification replaced", zap.String("id", req.ID))
	}

	e := &entry{token: uuid.NewString(), req: req}
	id, token := req.ID, e.token
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(id, token) })
	s.entries[req.ID] = e

	s.log.Info("notification scheduled",
		zap.String("id", req.ID),
		zap.String("category", string(req.Category)),
		zap.Time("fire_at", req.FireAt),
		zap.Duration("in", delay),
	)
	return true
}

// Cancel stops and forgets the entry for id. Unknown IDs are ignored.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.timer.Stop()
	delete(s.entries, id)
	s.log.Info("notification cancelled", zap.String("id", id))
}

// CancelAll stops every pending entry. Once it returns, no timer armed before
// the call will start a delivery.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.log.Debug("all notifications cancelled")
}

// Count returns the number of pending entries.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Pending lists live entries ordered by fire time, then ID.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	out := make([]Pending, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Pending{
			ID:       e.req.ID,
			Title:    e.req.Title,
			Category: e.req.Category,
			FireAt:   e.req.FireAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// fire runs on the timer goroutine. The entry stays registered while the
// delivery is in flight and is removed afterwards, whatever the outcome.
func (s *Scheduler) fire(id, token string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.token != token {
		// Cancelled or replaced after the timer elapsed.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.deliver(e.req); err != nil {
		s.log.Warn("notification delivery failed", zap.String("id", id), zap.Error(err))
	} else {
		s.log.Info("notification delivered", zap.String("id", id))
	}

	s.mu.Lock()
	if cur, ok := s.entries[id]; ok && cur.token == token {
		delete(s.entries, id)
	}
	s.mu.Unlock()
}

func (s *Scheduler) deliver(req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliverer panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.deliverer.Deliver(ctx, Payload{
		ID:       req.ID,
		Title:    req.Title,
		Body:     req.Body,
		Icon:     s.icon,
		Category: req.Category,
	})
}
