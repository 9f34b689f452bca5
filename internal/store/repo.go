package store

import (
	"context"
	"time"
)

// Delivery is one attempt to deliver a fired reminder on one channel.
type Delivery struct {
	ID             int64     `json:"id"`
	NotificationID string    `json:"notification_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Channel        string    `json:"channel"`
	DeliveredAt    time.Time `json:"delivered_at"`
	OK             bool      `json:"ok"`
	Error          string    `json:"error,omitempty"`
}

// Repo is the delivery journal. It records what fired; it never holds pending schedules.
type Repo interface {
	RecordDelivery(ctx context.Context, d *Delivery) error
	ListDeliveries(ctx context.Context, limit int) ([]Delivery, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
