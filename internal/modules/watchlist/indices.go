package watchlist

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
)

// IndexRepository stores the dashboard index list. While the user has not
// picked any, Codes falls back to the configured defaults.
type IndexRepository struct {
	db       *sql.DB
	defaults []string
	now      func() time.Time
	log      zerolog.Logger
}

// NewIndexRepository creates the repository over the portfolio database.
func NewIndexRepository(db *sql.DB, defaults []string, log zerolog.Logger) *IndexRepository {
	return &IndexRepository{
		db:       db,
		defaults: append([]string(nil), defaults...),
		now:      time.Now,
		log:      log.With().Str("repo", "user_indices").Logger(),
	}
}

// Add pins a symbol to the end of the list. Re-adding a listed symbol
// renames it in place.
func (r *IndexRepository) Add(idx Index) (Index, error) {
	idx.Symbol = strings.TrimSpace(idx.Symbol)
	kind, err := domain.Classify(idx.Symbol)
	if err != nil {
		return Index{}, err
	}
	if kind == domain.KindFund {
		return Index{}, fmt.Errorf("%s is a fund, not a market quote", idx.Symbol)
	}
	if idx.Market == "" {
		idx.Market = marketOf(idx.Symbol)
	}

	_, err = r.db.Exec(`INSERT INTO user_indices (symbol, name, market, position, added_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM user_indices), ?)
		ON CONFLICT(symbol) DO UPDATE SET name = excluded.name, market = excluded.market`,
		idx.Symbol, idx.Name, idx.Market, r.now().Unix())
	if err != nil {
		return Index{}, fmt.Errorf("failed to save index %s: %w", idx.Symbol, err)
	}

	row := r.db.QueryRow(`SELECT symbol, name, market, position, added_at FROM user_indices WHERE symbol = ?`, idx.Symbol)
	var out Index
	if err := row.Scan(&out.Symbol, &out.Name, &out.Market, &out.Position, &out.AddedAt); err != nil {
		return Index{}, fmt.Errorf("failed to read index %s: %w", idx.Symbol, err)
	}
	r.log.Info().Str("symbol", out.Symbol).Msg("Index pinned")
	return out, nil
}

// Remove unpins a symbol.
func (r *IndexRepository) Remove(symbol string) error {
	res, err := r.db.Exec("DELETE FROM user_indices WHERE symbol = ?", strings.TrimSpace(symbol))
	if err != nil {
		return fmt.Errorf("failed to remove index %s: %w", symbol, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, symbol)
	}
	return nil
}

// List returns the pinned indices in display order.
func (r *IndexRepository) List() ([]Index, error) {
	rows, err := r.db.Query(`SELECT symbol, name, market, position, added_at FROM user_indices ORDER BY position, symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query indices: %w", err)
	}
	defer rows.Close()

	out := []Index{}
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Symbol, &idx.Name, &idx.Market, &idx.Position, &idx.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// Codes returns the symbols the dashboard and the tick poller follow.
func (r *IndexRepository) Codes() ([]string, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return append([]string(nil), r.defaults...), nil
	}
	codes := make([]string, len(list))
	for i, idx := range list {
		codes[i] = idx.Symbol
	}
	return codes, nil
}

// IsNotFound reports whether err is a missing index or favorite.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIndexNotFound) || errors.Is(err, ErrFavoriteNotFound)
}

// marketOf derives the listing market: s_sh000300 -> sh, int_dji -> int.
func marketOf(symbol string) string {
	s := strings.TrimPrefix(symbol, "s_")
	switch {
	case strings.HasPrefix(s, "int_"):
		return "int"
	case strings.HasPrefix(s, "sh"), strings.HasPrefix(s, "sz"):
		return s[:2]
	}
	return ""
}
