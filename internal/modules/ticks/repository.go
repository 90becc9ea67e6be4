// Package ticks is the durable store of intraday observations.
package ticks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/database"
	"github.com/aristath/fundpulse/internal/domain"
)

// Repository handles tick persistence. Appends are idempotent per
// (instrument_id, timestamp) so concurrent writers need no extra locking.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new tick repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "ticks").Logger(),
	}
}

// AppendBatch inserts ticks in one transaction and returns how many rows
// were new. Re-observing a second is silently ignored.
func (r *Repository) AppendBatch(ctx context.Context, ticks []domain.Tick) (int64, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	var inserted int64
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO ticks (instrument_id, timestamp, pct_change, price)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range ticks {
			res, err := stmt.ExecContext(ctx, t.InstrumentID, formatTimestamp(t.Timestamp), t.PctChange, t.Price)
			if err != nil {
				return fmt.Errorf("failed to insert tick %s: %w", t.InstrumentID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReadToday returns today's ticks for one instrument, ascending.
func (r *Repository) ReadToday(ctx context.Context, instrumentID string) ([]domain.Tick, error) {
	return r.ReadDay(ctx, instrumentID, r.now())
}

// ReadDay returns the ticks recorded on day (market zone), ascending.
func (r *Repository) ReadDay(ctx context.Context, instrumentID string, day time.Time) ([]domain.Tick, error) {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `SELECT instrument_id, timestamp, pct_change, price
		FROM ticks
		WHERE instrument_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`,
		instrumentID, formatTimestamp(start), formatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var out []domain.Tick
	for rows.Next() {
		t, err := scanTick(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticks: %w", err)
	}
	return out, nil
}

// Latest returns the most recent tick for an instrument on any day.
func (r *Repository) Latest(ctx context.Context, instrumentID string) (domain.Tick, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT instrument_id, timestamp, pct_change, price
		FROM ticks WHERE instrument_id = ?
		ORDER BY timestamp DESC LIMIT 1`, instrumentID)
	t, err := scanTick(row)
	if err == sql.ErrNoRows {
		return domain.Tick{}, false, nil
	}
	if err != nil {
		return domain.Tick{}, false, err
	}
	return t, true, nil
}

// Prune deletes ticks strictly older than retentionDays calendar days
// before today. Today's ticks are never deleted, whatever the argument.
func (r *Repository) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		retentionDays = 0
	}
	cutoff := startOfDay(r.now()).AddDate(0, 0, -retentionDays)

	res, err := r.db.ExecContext(ctx, "DELETE FROM ticks WHERE timestamp < ?", formatTimestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune ticks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of stored ticks.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ticks: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTick(s scanner) (domain.Tick, error) {
	var (
		t  domain.Tick
		ts string
	)
	if err := s.Scan(&t.InstrumentID, &ts, &t.PctChange, &t.Price); err != nil {
		if err == sql.ErrNoRows {
			return t, err
		}
		return t, fmt.Errorf("failed to scan tick: %w", err)
	}
	parsed, err := time.ParseInLocation(domain.TimestampLayout, ts, domain.MarketLocation())
	if err != nil {
		return t, fmt.Errorf("invalid tick timestamp %q: %w", ts, err)
	}
	t.Timestamp = parsed
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.In(domain.MarketLocation()).Format(domain.TimestampLayout)
}

func startOfDay(t time.Time) time.Time {
	t = t.In(domain.MarketLocation())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
