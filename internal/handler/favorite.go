package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/service"
)

// FavoriteHandler owns the per-account favorites endpoints. All routes are
// mounted behind Authenticate and act on the calling account only — there
// is no way to read or edit someone else's list.
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler creates a FavoriteHandler.
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// HandleAdd handles POST /api/me/favorites/{id}.
func (h *FavoriteHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	fav, err := h.favorites.Add(r.Context(), acct, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// HandleRemove handles DELETE /api/me/favorites/{id}.
func (h *FavoriteHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.favorites.Remove(r.Context(), acct, bookID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /api/me/favorites.
func (h *FavoriteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := listParams(r)
	favs, err := h.favorites.List(r.Context(), acct, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

type containsResponse struct {
	BookID    int64 `json:"bookId"`
	Favorited bool  `json:"favorited"`
}

// HandleContains handles GET /api/me/favorites/{id}.
func (h *FavoriteHandler) HandleContains(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	favorited, err := h.favorites.Contains(r.Context(), acct, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, containsResponse{BookID: bookID, Favorited: favorited})
}
