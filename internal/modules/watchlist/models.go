// Package watchlist keeps the user's dashboard indices and favorite links
// in the portfolio store.
package watchlist

import "errors"

var (
	// ErrIndexNotFound is returned when removing an index that is not listed.
	ErrIndexNotFound = errors.New("index not found")
	// ErrFavoriteNotFound is returned for an unknown favorite id.
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// Index is a market quote pinned to the dashboard. Position orders the list.
type Index struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Market   string `json:"market"`
	Position int    `json:"position"`
	AddedAt  int64  `json:"added_at"`
}

// Favorite is a bookmarked article or page.
type Favorite struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Category  string `json:"category"`
	AddedDate string `json:"added_date"`
}
