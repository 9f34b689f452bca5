package reminder

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

// Registry is the read/cancel side of scheduler.Scheduler.
type Registry interface {
	Count() int
	Pending() []scheduler.Pending
	Cancel(id string)
	CancelAll()
}

// CurrentMeal is the meal window containing a moment of the user's day.
type CurrentMeal struct {
	Label string           `json:"label"`
	At    domain.TimeOfDay `json:"-"`
}

// Service is what the bot and the HTTP API drive: the pending registry,
// on-demand rebuilds and the current meal.
type Service struct {
	registry Registry
	sync     *Sync
	clock    clockwork.Clock
}

func NewService(registry Registry, sync *Sync, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{registry: registry, sync: sync, clock: clock}
}

func (s *Service) Count() int                   { return s.registry.Count() }
func (s *Service) Pending() []scheduler.Pending { return s.registry.Pending() }
func (s *Service) Cancel(id string)             { s.registry.Cancel(id) }
func (s *Service) CancelAll()                   { s.registry.CancelAll() }

// Refresh forces a full rebuild from freshly fetched data.
func (s *Service) Refresh(ctx context.Context) (Summary, error) {
	sum, _, err := s.sync.Run(ctx, true)
	return sum, err
}

// CurrentMeal resolves the meal window containing at, or now in the user's
// zone when at is nil. It reuses the last applied settings when there are any.
func (s *Service) CurrentMeal(ctx context.Context, at *domain.TimeOfDay) (CurrentMeal, error) {
	snap, ok := s.sync.Last()
	if !ok {
		var err error
		if snap, err = s.sync.Fetch(ctx); err != nil {
			return CurrentMeal{}, err
		}
	}

	var now domain.TimeOfDay
	if at != nil {
		now = *at
	} else {
		now = domain.TimeOfDayOf(s.clock.Now().In(snap.Settings.Location))
	}
	return CurrentMeal{
		Label: domain.CurrentMeal(snap.Settings.Boundaries, now),
		At:    now,
	}, nil
}
