// Package delivery fans a fired reminder out to the configured channels,
// paces deliveries and journals every attempt.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hcissey0/fitpal-notify/internal/scheduler"
	"github.com/hcissey0/fitpal-notify/internal/store"
)

// Channel is a named delivery target.
type Channel struct {
	Name      string
	Deliverer scheduler.Deliverer
}

// Journal is the part of store.Repo the fan-out writes to.
type Journal interface {
	RecordDelivery(ctx context.Context, d *store.Delivery) error
}

// Fanout delivers each payload to every channel. A failing channel does not
// stop the others; the combined error reports every failure.
type Fanout struct {
	channels []Channel
	journal  Journal
	limiter  *rate.Limiter
	log      *zap.Logger
	now      func() time.Time
}

// Option customizes a Fanout.
type Option func(*Fanout)

// WithJournal records every attempt.
func WithJournal(j Journal) Option { return func(f *Fanout) { f.journal = j } }

// WithRateLimit allows at most perMinute deliveries per minute, with a burst of
// one per channel. Zero or less disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(f *Fanout) {
		if perMinute > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), max(1, len(f.channels)))
		}
	}
}

// NewFanout creates a Fanout. With no channels every payload goes to the log.
func NewFanout(log *zap.Logger, channels []Channel, opts ...Option) *Fanout {
	if len(channels) == 0 {
		channels = []Channel{{Name: "log", Deliverer: NewLog(log)}}
	}
	f := &Fanout{channels: channels, log: log, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Channels returns the configured channel names.
func (f *Fanout) Channels() []string {
	names := make([]string, len(f.channels))
	for i, ch := range f.channels {
		names[i] = ch.Name
	}
	return names
}

func (f *Fanout) Deliver(ctx context.Context, p scheduler.Payload) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var errs []error
	for _, ch := range f.channels {
		err := ch.Deliverer.Deliver(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
		f.record(ctx, ch.Name, p, err)
	}
	return errors.Join(errs...)
}

func (f *Fanout) record(ctx context.Context, channel string, p scheduler.Payload, err error) {
	if f.journal == nil {
		return
	}
	d := &store.Delivery{
		NotificationID: p.ID,
		Category:       string(p.Category),
		Title:          p.Title,
		Channel:        channel,
		DeliveredAt:    f.now().UTC(),
		OK:             err == nil,
	}
	if err != nil {
		d.Error = err.Error()
	}
	// The delivery context may already be spent; the journal write gets its own.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if jerr := f.journal.RecordDelivery(jctx, d); jerr != nil {
		f.log.Warn("journal write failed", zap.String("id", p.ID), zap.Error(jerr))
	}
}

// Log writes payloads to the logger. It stands in when no channel is configured.
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) Deliver(_ context.Context, p scheduler.Payload) error {
	l.log.Info("reminder",
		zap.String("id", p.ID),
		zap.String("category", string(p.Category)),
		zap.String("title", p.Title),
		zap.String("body", p.Body),
	)
	return nil
}
