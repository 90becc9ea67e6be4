package holdings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/fundpulse/internal/database"
	"github.com/rs/zerolog"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Repository handles holding and asset snapshot persistence
type Repository struct {
	conn *sql.DB
	db   querier
	now  func() time.Time
	log  zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		conn: db,
		db:   db,
		now:  time.Now,
		log:  log.With().Str("repo", "holdings").Logger(),
	}
}

// InTx runs fn against a repository bound to a single transaction. Nothing
// fn writes is visible to other callers until it returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTransaction(ctx, r.conn, func(tx *sql.Tx) error {
		scoped := *r
		scoped.db = tx
		return fn(&scoped)
	})
}

const holdingColumns = `id, instrument_id, name, units, cost_basis, acquired_date, created_at, updated_at`

// Create inserts a holding and returns it with its id.
func (r *Repository) Create(h Holding) (Holding, error) {
	now := r.now().Unix()
	res, err := r.db.Exec(`INSERT INTO holdings (instrument_id, name, units, cost_basis, acquired_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.InstrumentID, h.Name, h.Units, h.CostBasis, h.AcquiredDate, now, now)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to insert holding %s: %w", h.InstrumentID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Holding{}, fmt.Errorf("failed to read holding id: %w", err)
	}
	h.ID = id
	h.CreatedAt = now
	h.UpdatedAt = now
	return h, nil
}

// GetByID returns one holding or ErrHoldingNotFound.
func (r *Repository) GetByID(id int64) (Holding, error) {
	row := r.db.QueryRow("SELECT "+holdingColumns+" FROM holdings WHERE id = ?", id)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Holding{}, fmt.Errorf("%w: %d", ErrHoldingNotFound, id)
	}
	return h, err
}

// GetByInstrument returns the holding for an instrument, if any.
func (r *Repository) GetByInstrument(instrumentID string) (Holding, bool, error) {
	row := r.db.QueryRow("SELECT "+holdingColumns+" FROM holdings WHERE instrument_id = ?", instrumentID)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Holding{}, false, nil
	}
	if err != nil {
		return Holding{}, false, err
	}
	return h, true, nil
}

// GetAll returns every holding ordered by id.
func (r *Repository) GetAll() ([]Holding, error) {
	rows, err := r.db.Query("SELECT " + holdingColumns + " FROM holdings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []Holding{}
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// Update stores units, cost basis and name.
func (r *Repository) Update(h Holding) (Holding, error) {
	now := r.now().Unix()
	res, err := r.db.Exec(`UPDATE holdings SET name = ?, units = ?, cost_basis = ?, updated_at = ? WHERE id = ?`,
		h.Name, h.Units, h.CostBasis, now, h.ID)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to update holding %d: %w", h.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Holding{}, fmt.Errorf("%w: %d", ErrHoldingNotFound, h.ID)
	}
	h.UpdatedAt = now
	return h, nil
}

// Delete removes a holding.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM holdings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holding %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrHoldingNotFound, id)
	}
	return nil
}

// UpsertSnapshot writes the totals for a date, replacing an earlier run.
func (r *Repository) UpsertSnapshot(s Snapshot) error {
	_, err := r.db.Exec(`INSERT INTO asset_snapshots (date, total_market_value, total_cost, day_profit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_market_value = excluded.total_market_value,
			total_cost = excluded.total_cost,
			day_profit = excluded.day_profit`,
		s.Date, s.TotalMarketValue, s.TotalCost, s.DayProfit)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", s.Date, err)
	}
	return nil
}

// Snapshots returns the most recent snapshots in date order.
func (r *Repository) Snapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.Query(`SELECT date, total_market_value, total_cost, day_profit FROM (
			SELECT * FROM asset_snapshots ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Date, &s.TotalMarketValue, &s.TotalCost, &s.DayProfit); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(s scanner) (Holding, error) {
	var h Holding
	err := s.Scan(&h.ID, &h.InstrumentID, &h.Name, &h.Units, &h.CostBasis, &h.AcquiredDate, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h, err
		}
		return h, fmt.Errorf("failed to scan holding: %w", err)
	}
	return h, nil
}
