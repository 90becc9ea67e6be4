package watchlist

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
)

// FavoriteRepository stores bookmarked links, one row per URL.
type FavoriteRepository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewFavoriteRepository creates the repository over the portfolio database.
func NewFavoriteRepository(db *sql.DB, log zerolog.Logger) *FavoriteRepository {
	return &FavoriteRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "favorites").Logger(),
	}
}

// Add bookmarks a link. Saving a URL twice updates its title and category.
func (r *FavoriteRepository) Add(f Favorite) (Favorite, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.URL = strings.TrimSpace(f.URL)
	f.Category = strings.TrimSpace(f.Category)
	if f.Title == "" {
		return Favorite{}, fmt.Errorf("title is required")
	}
	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Favorite{}, fmt.Errorf("invalid url %q", f.URL)
	}

	added := r.now().In(domain.MarketLocation()).Format(domain.DateLayout)
	_, err = r.db.Exec(`INSERT INTO favorites (title, url, category, added_date) VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET title = excluded.title, category = excluded.category`,
		f.Title, f.URL, f.Category, added)
	if err != nil {
		return Favorite{}, fmt.Errorf("failed to save favorite: %w", err)
	}

	row := r.db.QueryRow(`SELECT id, title, url, category, added_date FROM favorites WHERE url = ?`, f.URL)
	var out Favorite
	if err := row.Scan(&out.ID, &out.Title, &out.URL, &out.Category, &out.AddedDate); err != nil {
		return Favorite{}, fmt.Errorf("failed to read favorite: %w", err)
	}
	return out, nil
}

// List returns favorites newest first. An empty category means all.
func (r *FavoriteRepository) List(category string) ([]Favorite, error) {
	query := `SELECT id, title, url, category, added_date FROM favorites`
	var args []interface{}
	if category = strings.TrimSpace(category); category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY added_date DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	out := []Favorite{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.Title, &f.URL, &f.Category, &f.AddedDate); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetByID returns one favorite or ErrFavoriteNotFound.
func (r *FavoriteRepository) GetByID(id int64) (Favorite, error) {
	var f Favorite
	err := r.db.QueryRow(`SELECT id, title, url, category, added_date FROM favorites WHERE id = ?`, id).
		Scan(&f.ID, &f.Title, &f.URL, &f.Category, &f.AddedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Favorite{}, fmt.Errorf("%w: %d", ErrFavoriteNotFound, id)
	}
	if err != nil {
		return Favorite{}, fmt.Errorf("failed to read favorite %d: %w", id, err)
	}
	return f, nil
}

// Delete removes a favorite.
func (r *FavoriteRepository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM favorites WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete favorite %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrFavoriteNotFound, id)
	}
	return nil
}
