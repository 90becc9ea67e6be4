// Package plans stores recurring investment plans.
package plans

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/modules/sip"
)

// ErrPlanNotFound is returned for an unknown plan id.
var ErrPlanNotFound = errors.New("plan not found")

// Status of a plan.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusStopped:
		return true
	}
	return false
}

// Plan is a recurring fixed-amount purchase of one instrument.
type Plan struct {
	ID           int64         `json:"id"`
	InstrumentID string        `json:"instrument_id"`
	Name         string        `json:"name"`
	Amount       float64       `json:"amount"`
	Frequency    sip.Frequency `json:"frequency"`
	ExecutionDay int           `json:"execution_day"`
	StartDate    string        `json:"start_date"`
	Status       Status        `json:"status"`
	CreatedAt    int64         `json:"created_at"`
}

// Validate checks a plan before it is stored.
func (p Plan) Validate() error {
	if _, err := domain.Classify(p.InstrumentID); err != nil {
		return err
	}
	params := sip.Params{Amount: p.Amount, Frequency: p.Frequency, ExecutionDay: p.ExecutionDay, DurationYears: 1}
	if err := params.Validate(); err != nil {
		return err
	}
	if _, err := time.Parse(domain.DateLayout, p.StartDate); err != nil {
		return fmt.Errorf("invalid start date %q", p.StartDate)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid plan status %q", p.Status)
	}
	return nil
}

// Repository handles plan persistence
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new plan repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "plans").Logger(),
	}
}

// Create validates and inserts a plan. Missing start date and status
// default to today and active.
func (r *Repository) Create(p Plan) (Plan, error) {
	now := r.now()
	if p.StartDate == "" {
		p.StartDate = now.In(domain.MarketLocation()).Format(domain.DateLayout)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	res, err := r.db.Exec(`INSERT INTO plans (instrument_id, name, amount, frequency, execution_day, start_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.InstrumentID, p.Name, p.Amount, string(p.Frequency), p.ExecutionDay, p.StartDate, string(p.Status), now.Unix())
	if err != nil {
		return Plan{}, fmt.Errorf("failed to insert plan for %s: %w", p.InstrumentID, err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return Plan{}, fmt.Errorf("failed to read plan id: %w", err)
	}
	p.CreatedAt = now.Unix()

	r.log.Info().Int64("id", p.ID).Str("code", p.InstrumentID).Msg("Plan created")
	return p, nil
}

// GetAll returns every plan, newest first.
func (r *Repository) GetAll() ([]Plan, error) {
	rows, err := r.db.Query(`SELECT id, instrument_id, name, amount, frequency, execution_day, start_date, status, created_at
		FROM plans ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		var p Plan
		var freq, status string
		if err := rows.Scan(&p.ID, &p.InstrumentID, &p.Name, &p.Amount, &freq, &p.ExecutionDay, &p.StartDate, &status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Frequency = sip.Frequency(freq)
		p.Status = Status(status)
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return plans, nil
}

// UpdateStatus sets a plan's status.
func (r *Repository) UpdateStatus(id int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid plan status %q", status)
	}
	res, err := r.db.Exec("UPDATE plans SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update plan %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, id)
	}
	return nil
}

// Delete removes a plan.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, id)
	}
	return nil
}
