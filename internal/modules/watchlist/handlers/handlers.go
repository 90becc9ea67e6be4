// Package handlers provides HTTP handlers for the dashboard index list and
// favorite links.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/watchlist"
)

// Handler handles watchlist HTTP requests
type Handler struct {
	indices   *watchlist.IndexRepository
	favorites *watchlist.FavoriteRepository
	log       zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(indices *watchlist.IndexRepository, favorites *watchlist.FavoriteRepository, log zerolog.Logger) *Handler {
	return &Handler{
		indices:   indices,
		favorites: favorites,
		log:       log.With().Str("handler", "watchlist").Logger(),
	}
}

type indicesResponse struct {
	Pinned []watchlist.Index `json:"pinned"`
	Codes  []string          `json:"codes"`
}

// HandleListIndices handles GET /api/watchlist/indices. Codes is what the
// dashboard actually follows, the defaults while nothing is pinned.
func (h *Handler) HandleListIndices(w http.ResponseWriter, r *http.Request) {
	pinned, err := h.indices.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list indices")
		http.Error(w, "Failed to list indices", http.StatusInternalServerError)
		return
	}
	codes, err := h.indices.Codes()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list index codes")
		http.Error(w, "Failed to list indices", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, indicesResponse{Pinned: pinned, Codes: codes})
}

// HandleAddIndex handles POST /api/watchlist/indices
func (h *Handler) HandleAddIndex(w http.ResponseWriter, r *http.Request) {
	var in watchlist.Index
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	idx, err := h.indices.Add(in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, idx)
}

// HandleRemoveIndex handles DELETE /api/watchlist/indices/{symbol}
func (h *Handler) HandleRemoveIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.indices.Remove(chi.URLParam(r, "symbol")); err != nil {
		h.writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListFavorites handles GET /api/watchlist/favorites?category=
func (h *Handler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	list, err := h.favorites.List(r.URL.Query().Get("category"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list favorites")
		http.Error(w, "Failed to list favorites", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetFavorite handles GET /api/watchlist/favorites/{id}
func (h *Handler) HandleGetFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	f, err := h.favorites.GetByID(id)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

// HandleAddFavorite handles POST /api/watchlist/favorites
func (h *Handler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var in watchlist.Favorite
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	f, err := h.favorites.Add(in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, f)
}

// HandleDeleteFavorite handles DELETE /api/watchlist/favorites/{id}
func (h *Handler) HandleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.favorites.Delete(id); err != nil {
		h.writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error) {
	if watchlist.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg("Watchlist update failed")
	http.Error(w, "Watchlist update failed", http.StatusInternalServerError)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid favorite id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeJSON writes the data inside the standard envelope
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
