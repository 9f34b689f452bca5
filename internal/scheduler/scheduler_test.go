package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type recordingDeliverer struct {
	mu   sync.Mutex
	got  []Payload
	err  error
	fire chan Payload
}

func newRecorder() *recordingDeliverer {
	return &recordingDeliverer{fire: make(chan Payload, 16)}
}

func (r *recordingDeliverer) Deliver(_ context.Context, p Payload) error {
	r.mu.Lock()
	r.got = append(r.got, p)
	err := r.err
	r.mu.Unlock()
	r.fire <- p
	return err
}

func (r *recordingDeliverer) delivered() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payload, len(r.got))
	copy(out, r.got)
	return out
}

func newTestScheduler(t *testing.T, d Deliverer) (*Scheduler, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC))
	return New(d, zap.NewNop(), WithClock(clock), WithIcon("/icon.png")), clock
}

func waitDelivery(t *testing.T, r *recordingDeliverer) Payload {
	t.Helper()
	select {
	case p := <-r.fire:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Payload{}
	}
}

func waitCount(t *testing.T, s *Scheduler, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("count: want %d, got %d", want, s.Count())
}

func req(id string, fireAt time.Time) Request {
	return Request{ID: id, Title: "title " + id, Body: "body " + id, FireAt: fireAt, Category: CategoryMeal}
}

func TestSchedule_FiresAndRemovesEntry(t *testing.T) {
	rec := newRecorder()
	s, clock := newTestScheduler(t, rec)

	if !s.Schedule(req("x", clock.Now().Add(time.Minute))) {
		t.Fatal("expected request to be armed")
	}
	if s.Count() != 1 {
		t.Fatalf("want 1 pending, got %d", s.Count())
	}

	clock.Advance(time.Minute)
	p := waitDelivery(t, rec)
	if p.ID != "x" || p.Title != "title x" || p.Body != "body x" || p.Icon != "/icon.png" {
		t.Fatalf("unexpected payload %+v", p)
	}
	waitCount(t, s, 0)
}

func TestSchedule_PastFireTimeIsDropped(t *testing.T) {
	rec := newRecorder()
	s, clock := newTestScheduler(t, rec)

	if s.Schedule(req("late", clock.Now())) {
		t.Fatal("fire time equal to now must be dropped")
	}
	if s.Schedule(req("later", clock.Now().Add(-time.Hour))) {
		t.Fatal("fire time in the past must be dropped")
	}
	if s.Count() != 0 {
		t.Fatalf("want 0 pending, got %d", s.Count())
	}
	clock.Advance(24 * time.Hour)
	if got := rec.delivered(); len(got) != 0 {
		t.Fatalf("expected no deliveries, got %+v", got)
	}
}

func TestCancel_BeforeFireNeverDelivers(t *testing.T) {
	rec := newRecorder()
	s, clock := newTestScheduler(t, rec)

	s.Schedule(req("x", clock.Now().Add(time.Second)))
	s.Cancel("x")
	if s.Count() != 0 {
		t.Fatalf("want 0 pending, got %d", s.Count())
	}

	clock.Advance(time.Hour)
	select {
	case p := <-rec.fire:
		t.Fatalf("cancelled notification delivered: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancel_UnknownIsNoop(t *testing.T) {
	s, clock := newTestScheduler(t, newRecorder())
	s.Schedule(req("keep", clock.Now().Add(time.Minute)))
	s.Cancel("missing")
	s.Cancel("missing")
	if s.Count() != 1 {
		t.Fatalf("want 1 pending, got %d", s.Count())
	}
}

func TestSchedule_SameIDReplaces(t *testing.T) {
	rec := newRecorder()
	s, clock := newTestScheduler(t, rec)

	first := req("x", clock.Now().Add(time.Minute))
	first.Title = "first"
	second := req("x", clock.Now().Add(2*time.Minute))
	second.Title = "second"

	s.Schedule(first)
	s.Schedule(second)
	if s.Count() != 1 {
		t.Fatalf("want 1 pending, got %d", s.Count())
	}
	if p := s.Pending(); len(p) != 1 || !p[0].FireAt.Equal(second.FireAt) {
		t.Fatalf("unexpected pending %+v", p)
	}

	clock.Advance(time.Minute)
	select {
	case p := <-rec.fire:
		t.Fatalf("replaced notification delivered: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	if p := waitDelivery(t, rec); p.Title != "second" {
		t.Fatalf("want second, got %s", p.Title)
	}
	waitCount(t, s, 0)
	if got := rec.delivered(); len(got) != 1 {
		t.Fatalf("want exactly one delivery, got %d", len(got))
	}
}

func TestCancelAll(t *testing.T) {
	rec := newRecorder()
	s, clock := newTestScheduler(t, rec)

	s.CancelAll()
	if s.Count() != 0 {
		t.Fatalf("want 0 pending, got %d", s.Count())
	}

	for _, id := range []string{"a", "b", "c"} {
		s.Schedule(req(id, clock.Now().Add(time.Hour)))
	}
	if s.Count() != 3 {
		t.Fatalf("want 3 pending, got %d", s.Count())
	}
	s.CancelAll()
	s.CancelAll()
	if s.Count() != 0 {
		t.Fatalf("want 0 pending, got %d", s.Count())
	}

	clock.Advance(2 * time.Hour)
	select {
	case p := <-rec.fire:
		t.Fatalf("cancelled notification delivered: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliveryFailure_CleansUpEntry(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("push endpoint unreachable")
	s, clock := newTestScheduler(t, rec)

	s.Schedule(req("x", clock.Now().Add(time.Minute)))
	s.Schedule(req("y", clock.Now().Add(time.Hour)))
	clock.Advance(time.Minute)
	waitDelivery(t, rec)
	waitCount(t, s, 1)

	// The scheduler keeps working after a failure.
	clock.Advance(time.Hour)
	if p := waitDelivery(t, rec); p.ID != "y" {
		t.Fatalf("want y, got %s", p.ID)
	}
	waitCount(t, s, 0)
}

func TestDeliveryPanic_IsRecovered(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := DelivererFunc(func(context.Context, Payload) error {
		fired <- struct{}{}
		panic("boom")
	})
	s, clock := newTestScheduler(t, d)

	s.Schedule(req("x", clock.Now().Add(time.Minute)))
	clock.Advance(time.Minute)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	waitCount(t, s, 0)
}

func TestPending_OrderedByFireTime(t *testing.T) {
	s, clock := newTestScheduler(t, newRecorder())
	now := clock.Now()
	s.Schedule(req("late", now.Add(3*time.Hour)))
	s.Schedule(req("early", now.Add(time.Hour)))
	s.Schedule(req("b-mid", now.Add(2*time.Hour)))
	s.Schedule(req("a-mid", now.Add(2*time.Hour)))

	got := s.Pending()
	want := []string{"early", "a-mid", "b-mid", "late"}
	if len(got) != len(want) {
		t.Fatalf("want %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, got[i].ID)
		}
	}
}

// blockingDeliverer holds every delivery until release is closed.
type blockingDeliverer struct {
	started chan Payload
	release chan struct{}
}

func newBlocking() *blockingDeliverer {
	return &blockingDeliverer{started: make(chan Payload, 16), release: make(chan struct{})}
}

func (b *blockingDeliverer) Deliver(_ context.Context, p Payload) error {
	b.started <- p
	<-b.release
	return nil
}

func waitStarted(t *testing.T, b *blockingDeliverer) Payload {
	t.Helper()
	select {
	case p := <-b.started:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery to start")
		return Payload{}
	}
}

func TestSchedule_ReplaceDuringDeliveryIsKept(t *testing.T) {
	d := newBlocking()
	s, clock := newTestScheduler(t, d)

	old := req("x", clock.Now().Add(time.Minute))
	old.Title = "old"
	s.Schedule(old)
	clock.Advance(time.Minute)
	if p := waitStarted(t, d); p.Title != "old" {
		t.Fatalf("want old, got %s", p.Title)
	}
	if s.Count() != 1 {
		t.Fatalf("in-flight entry must stay registered, got %d", s.Count())
	}

	replacement := req("x", clock.Now().Add(time.Minute))
	replacement.Title = "new"
	if !s.Schedule(replacement) {
		t.Fatal("expected replacement to be armed")
	}
	close(d.release)

	// The finished delivery belongs to the old token and must not remove the new entry.
	time.Sleep(50 * time.Millisecond)
	if s.Count() != 1 {
		t.Fatalf("replacement must survive the old delivery, got %d", s.Count())
	}
	if p := s.Pending(); p[0].Title != "new" {
		t.Fatalf("unexpected pending %+v", p)
	}

	clock.Advance(time.Minute)
	if p := waitStarted(t, d); p.Title != "new" {
		t.Fatalf("want new, got %s", p.Title)
	}
	waitCount(t, s, 0)
}

func TestCancel_DuringDelivery(t *testing.T) {
	d := newBlocking()
	s, clock := newTestScheduler(t, d)

	s.Schedule(req("x", clock.Now().Add(time.Minute)))
	clock.Advance(time.Minute)
	waitStarted(t, d)

	s.Cancel("x")
	if s.Count() != 0 {
		t.Fatalf("cancel must drop the in-flight entry at once, got %d", s.Count())
	}
	close(d.release)
	time.Sleep(50 * time.Millisecond)
	if s.Count() != 0 {
		t.Fatalf("want 0 pending, got %d", s.Count())
	}
}
