package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// RecordDelivery appends d to the journal and sets d.ID.
func (r *SQLiteRepo) RecordDelivery(ctx context.Context, d *Delivery) error {
	if d == nil {
		return errors.New("nil delivery")
	}
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			notification_id, category, title, channel, delivered_at, ok, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.NotificationID, d.Category, d.Title, d.Channel,
		d.DeliveredAt.UTC().UnixMilli(), boolToInt(d.OK), toNullString(d.Error),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListDeliveries returns up to limit journal rows, newest first.
func (r *SQLiteRepo) ListDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, notification_id, category, title, channel, delivered_at, ok, error
		FROM deliveries
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Delivery
	for rows.Next() {
		var (
			d           Delivery
			deliveredAt int64
			okInt       int
			errText     sql.NullString
		)
		if err := rows.Scan(
			&d.ID, &d.NotificationID, &d.Category, &d.Title, &d.Channel,
			&deliveredAt, &okInt, &errText,
		); err != nil {
			return nil, err
		}
		d.DeliveredAt = time.UnixMilli(deliveredAt).UTC()
		d.OK = okInt != 0
		d.Error = errText.String
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// PruneBefore deletes journal rows older than before.
func (r *SQLiteRepo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deliveries WHERE delivered_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
