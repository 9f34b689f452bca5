package reminder

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
)

// Source supplies the profile and plans the reminders are derived from.
// planapi.Client implements it against the FitPal backend.
type Source interface {
	Profile(ctx context.Context) (domain.Profile, error)
	Plans(ctx context.Context) ([]domain.FitnessPlan, error)
}

// Snapshot is the settings and plan a rebuild was computed from.
type Snapshot struct {
	Settings domain.NotificationSettings
	Today    domain.TodayPlan
	Weekday  time.Weekday
}

// Sync re-fetches the user's data and rebuilds the reminders when it changed.
type Sync struct {
	source     Source
	builder    *Builder
	clock      clockwork.Clock
	defaultLoc *time.Location
	log        *zap.Logger

	// runMu serializes Run so an older fetch never rebuilds over a newer one.
	runMu   sync.Mutex
	mu      sync.Mutex
	last    *Snapshot
	onApply func(Snapshot)
}

// NewSync creates a Sync. defaultLoc is used when the profile has no usable time zone.
func NewSync(source Source, builder *Builder, clock clockwork.Clock, defaultLoc *time.Location, log *zap.Logger) *Sync {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Sync{source: source, builder: builder, clock: clock, defaultLoc: defaultLoc, log: log}
}

// Fetch loads the current snapshot without touching the scheduler.
func (s *Sync) Fetch(ctx context.Context) (Snapshot, error) {
	profile, err := s.source.Profile(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch profile: %w", err)
	}
	plans, err := s.source.Plans(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch plans: %w", err)
	}

	settings := profile.NotificationSettings(s.defaultLoc)
	weekday := s.clock.Now().In(settings.Location).Weekday()
	return Snapshot{
		Settings: settings,
		Today:    domain.ActivePlan(plans).Today(weekday),
		Weekday:  weekday,
	}, nil
}

// OnApply registers fn to be called with every snapshot a rebuild applied.
func (s *Sync) OnApply(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onApply = fn
}

// Run fetches a snapshot and rebuilds if it differs from the last one applied,
// or unconditionally when force is set. It reports whether a rebuild happened.
// Concurrent calls run one after another.
func (s *Sync) Run(ctx context.Context, force bool) (Summary, bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	snap, err := s.Fetch(ctx)
	if err != nil {
		return Summary{}, false, err
	}

	s.mu.Lock()
	if !force && s.last != nil && sameSnapshot(*s.last, snap) {
		s.mu.Unlock()
		s.log.Debug("plan data unchanged, keeping schedule")
		return Summary{}, false, nil
	}
	sum := s.builder.Rebuild(snap.Settings, snap.Today)
	s.last = &snap
	onApply := s.onApply
	s.mu.Unlock()

	if onApply != nil {
		onApply(snap)
	}
	return sum, true, nil
}

// Last returns the snapshot of the most recent rebuild.
func (s *Sync) Last() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Snapshot{}, false
	}
	return *s.last, true
}

func sameSnapshot(a, b Snapshot) bool {
	if a.Settings.Location.String() != b.Settings.Location.String() {
		return false
	}
	a.Settings.Location, b.Settings.Location = nil, nil
	return reflect.DeepEqual(a, b)
}
