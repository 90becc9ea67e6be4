// Package clientdata persists upstream responses with an expiry so a
// restart does not refetch slow-changing data, and so an expired copy can
// still serve as last-known data when every upstream is down.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Table names in client_data.db.
const (
	TableNAVHistory    = "nav_history"
	TableFundDirectory = "fund_directory"
)

// AllTables lists all tables in client_data.db for cleanup operations.
var AllTables = []string{
	TableNAVHistory,
	TableFundDirectory,
}

var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable guards the table names interpolated into SQL.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store msgpack-encodes v and upserts it with expires_at = now + ttl.
func (r *Repository) Store(table, key string, v interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", table, key, err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, data, expires_at) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, key, blob, r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh decodes into out only when the entry has not expired.
// It reports whether out was populated.
func (r *Repository) GetIfFresh(table, key string, out interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ? AND expires_at > ?", table)
	return r.load(query, out, key, r.now().Unix())
}

// Get decodes into out regardless of expiry. Use it as the fallback when
// every upstream call has failed.
func (r *Repository) Get(table, key string, out interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", table)
	return r.load(query, out, key)
}

func (r *Repository) load(query string, out interface{}, args ...interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read client data: %w", err)
	}
	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to decode client data: %w", err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes rows that expired more than grace ago. The grace
// window keeps recently expired rows available to Get.
func (r *Repository) DeleteExpired(table string, grace time.Duration) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-grace).Unix()
	result, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired runs DeleteExpired over every table.
func (r *Repository) DeleteAllExpired(grace time.Duration) (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table, grace)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}
