package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/fundpulse/internal/database"
)

// MaxSearchHistory is how many recent keywords are kept.
const MaxSearchHistory = 10

// SearchHistoryRepository remembers recent search keywords.
type SearchHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSearchHistoryRepository creates the repository over the portfolio database.
func NewSearchHistoryRepository(db *sql.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db, now: time.Now}
}

// Record stores keyword as most recent and trims the list.
func (r *SearchHistoryRepository) Record(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}

	return database.WithTransaction(context.Background(), r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO search_history (keyword, searched_at) VALUES (?, ?)
			ON CONFLICT(keyword) DO UPDATE SET searched_at = excluded.searched_at`,
			keyword, r.now().UnixNano()); err != nil {
			return fmt.Errorf("failed to record search: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM search_history WHERE keyword NOT IN (
			SELECT keyword FROM search_history ORDER BY searched_at DESC LIMIT ?)`, MaxSearchHistory); err != nil {
			return fmt.Errorf("failed to trim search history: %w", err)
		}
		return nil
	})
}

// Recent returns keywords, newest first.
func (r *SearchHistoryRepository) Recent() ([]string, error) {
	rows, err := r.db.Query("SELECT keyword FROM search_history ORDER BY searched_at DESC LIMIT ?", MaxSearchHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan search history: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Clear forgets all keywords.
func (r *SearchHistoryRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM search_history"); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}
