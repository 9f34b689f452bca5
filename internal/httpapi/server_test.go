package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/reminder"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
	"github.com/hcissey0/fitpal-notify/internal/store"
)

type fakeController struct {
	pending    []scheduler.Pending
	cancelled  []string
	all        bool
	refreshErr error
}

func (f *fakeController) Count() int                   { return len(f.pending) }
func (f *fakeController) Pending() []scheduler.Pending { return f.pending }
func (f *fakeController) Cancel(id string)             { f.cancelled = append(f.cancelled, id) }
func (f *fakeController) CancelAll()                   { f.all = true }

func (f *fakeController) Refresh(context.Context) (reminder.Summary, error) {
	if f.refreshErr != nil {
		return reminder.Summary{}, f.refreshErr
	}
	return reminder.Summary{Enabled: true, Submitted: 3, Scheduled: 2}, nil
}

func (f *fakeController) CurrentMeal(_ context.Context, at *domain.TimeOfDay) (reminder.CurrentMeal, error) {
	now := domain.MustTimeOfDay("09:00")
	if at != nil {
		now = *at
	}
	set := domain.BoundarySet{
		{Label: domain.MealBreakfast, At: domain.MustTimeOfDay("08:00")},
		{Label: domain.MealDinner, At: domain.MustTimeOfDay("18:00")},
	}
	return reminder.CurrentMeal{Label: domain.CurrentMeal(set, now), At: now}, nil
}

type fakeDeliveries struct{ limit int }

func (f *fakeDeliveries) ListDeliveries(_ context.Context, limit int) ([]store.Delivery, error) {
	f.limit = limit
	return []store.Delivery{{ID: 1, NotificationID: "meal-1-lunch", Channel: "telegram", OK: true}}, nil
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNotifications(t *testing.T) {
	ctrl := &fakeController{pending: []scheduler.Pending{
		{ID: "meal-1-lunch", Title: "☀️ Time for Lunch!", Category: scheduler.CategoryMeal, FireAt: time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)},
	}}
	h := NewRouter(ctrl, nil, nil, []string{"*"}, zap.NewNop())

	rec := do(t, h, http.MethodGet, "/api/v1/notifications")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body pendingResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Pending[0].ID != "meal-1-lunch" {
		t.Fatalf("unexpected body %+v", body)
	}

	if rec := do(t, h, http.MethodDelete, "/api/v1/notifications/meal-1-lunch"); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status %d", rec.Code)
	}
	if len(ctrl.cancelled) != 1 || ctrl.cancelled[0] != "meal-1-lunch" {
		t.Fatalf("unexpected cancels %v", ctrl.cancelled)
	}

	if rec := do(t, h, http.MethodDelete, "/api/v1/notifications"); rec.Code != http.StatusNoContent || !ctrl.all {
		t.Fatalf("cancel-all status %d", rec.Code)
	}
}

func TestRebuild(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(ctrl, nil, nil, []string{"*"}, zap.NewNop())

	rec := do(t, h, http.MethodPost, "/api/v1/rebuild")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var sum reminder.Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Scheduled != 2 || sum.Submitted != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	ctrl.refreshErr = errors.New("backend down")
	if rec := do(t, h, http.MethodPost, "/api/v1/rebuild"); rec.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d", rec.Code)
	}
}

func TestCurrentMeal(t *testing.T) {
	h := NewRouter(&fakeController{}, nil, nil, []string{"*"}, zap.NewNop())

	cases := []struct {
		query string
		code  int
		label string
	}{
		{"", http.StatusOK, domain.MealBreakfast},
		{"?at=19:00", http.StatusOK, domain.MealDinner},
		{"?at=03:00", http.StatusOK, domain.MealDinner},
		{"?at=25:00", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodGet, "/api/v1/meals/current"+tc.query)
		if rec.Code != tc.code {
			t.Fatalf("%q: status %d, want %d", tc.query, rec.Code, tc.code)
		}
		if tc.code != http.StatusOK {
			continue
		}
		var body currentMealResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Label != tc.label {
			t.Fatalf("%q: label %q, want %q", tc.query, body.Label, tc.label)
		}
	}
}

func TestDeliveries(t *testing.T) {
	d := &fakeDeliveries{}
	h := NewRouter(&fakeController{}, d, nil, []string{"*"}, zap.NewNop())

	rec := do(t, h, http.MethodGet, "/api/v1/deliveries?limit=5")
	if rec.Code != http.StatusOK || d.limit != 5 {
		t.Fatalf("status %d limit %d", rec.Code, d.limit)
	}
	var list []store.Delivery
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Channel != "telegram" {
		t.Fatalf("unexpected list %+v", list)
	}

	if rec := do(t, NewRouter(&fakeController{}, nil, nil, nil, zap.NewNop()), http.MethodGet, "/api/v1/deliveries"); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 without a journal, got %d", rec.Code)
	}
}

type fakeUpstream struct{ err error }

func (f *fakeUpstream) Status(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	if rec := do(t, NewRouter(&fakeController{}, nil, nil, nil, zap.NewNop()), http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec := do(t, NewRouter(&fakeController{}, nil, nil, nil, zap.NewNop()), http.MethodGet, "/healthz/upstream"); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 without an upstream, got %d", rec.Code)
	}

	up := &fakeUpstream{}
	h := NewRouter(&fakeController{}, nil, up, nil, zap.NewNop())
	if rec := do(t, h, http.MethodGet, "/healthz/upstream"); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	up.err = errors.New("connection refused")
	if rec := do(t, h, http.MethodGet, "/healthz/upstream"); rec.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d", rec.Code)
	}
}
