// Package httpapi exposes the reminder registry and the delivery journal over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/reminder"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
	"github.com/hcissey0/fitpal-notify/internal/store"
)

// Controller is the reminder side of the API; reminder.Service implements it.
type Controller interface {
	Count() int
	Pending() []scheduler.Pending
	Cancel(id string)
	CancelAll()
	Refresh(ctx context.Context) (reminder.Summary, error)
	CurrentMeal(ctx context.Context, at *domain.TimeOfDay) (reminder.CurrentMeal, error)
}

// Deliveries lists journaled delivery attempts.
type Deliveries interface {
	ListDeliveries(ctx context.Context, limit int) ([]store.Delivery, error)
}

// Upstream reports whether the plan backend is reachable; planapi.Client implements it.
type Upstream interface {
	Status(ctx context.Context) error
}

type handler struct {
	ctrl       Controller
	deliveries Deliveries
	upstream   Upstream
	log        *zap.Logger
}

// NewRouter builds the chi router. deliveries and upstream may be nil, in
// which case their endpoints answer 404.
func NewRouter(ctrl Controller, deliveries Deliveries, upstream Upstream, corsOrigins []string, log *zap.Logger) *chi.Mux {
	h := &handler{ctrl: ctrl, deliveries: deliveries, upstream: upstream, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	c := corslib.New(corslib.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Use(c.Handler)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		if upstream != nil {
			r.Get("/upstream", h.upstreamHealth)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/notifications", h.listPending)
		r.Delete("/notifications", h.cancelAll)
		r.Delete("/notifications/{id}", h.cancel)
		r.Post("/rebuild", h.rebuild)
		r.Get("/meals/current", h.currentMeal)
		if deliveries != nil {
			r.Get("/deliveries", h.listDeliveries)
		}
	})
	return r
}

func (h *handler) upstreamHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.upstream.Status(ctx); err != nil {
		h.log.Warn("upstream health check failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "UPSTREAM_DOWN", "plan backend unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pendingResponse struct {
	Count   int                 `json:"count"`
	Pending []scheduler.Pending `json:"pending"`
}

func (h *handler) listPending(w http.ResponseWriter, _ *http.Request) {
	pending := h.ctrl.Pending()
	if pending == nil {
		pending = []scheduler.Pending{}
	}
	writeJSON(w, http.StatusOK, pendingResponse{Count: len(pending), Pending: pending})
}

func (h *handler) cancelAll(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.CancelAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Cancel(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) rebuild(w http.ResponseWriter, r *http.Request) {
	sum, err := h.ctrl.Refresh(r.Context())
	if err != nil {
		h.log.Warn("rebuild failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "could not load plan data")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type currentMealResponse struct {
	Label string `json:"label"`
	At    string `json:"at"`
}

func (h *handler) currentMeal(w http.ResponseWriter, r *http.Request) {
	var at *domain.TimeOfDay
	if raw := r.URL.Query().Get("at"); raw != "" {
		t, err := domain.ParseTimeOfDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_TIME", "at must be HH:MM or HH:MM:SS")
			return
		}
		at = &t
	}
	cur, err := h.ctrl.CurrentMeal(r.Context(), at)
	if err != nil {
		h.log.Warn("current meal failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "could not load plan data")
		return
	}
	writeJSON(w, http.StatusOK, currentMealResponse{Label: cur.Label, At: cur.At.String()})
}

func (h *handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n >= 1 && n <= 500 {
			limit = n
		}
	}
	list, err := h.deliveries.ListDeliveries(r.Context(), limit)
	if err != nil {
		h.log.Error("list deliveries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", "could not read deliveries")
		return
	}
	if list == nil {
		list = []store.Delivery{}
	}
	writeJSON(w, http.StatusOK, list)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
