package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/service"
)

// ReviewHandler owns the review endpoints. Reading reviews is public;
// writing requires authentication, and deleting a review requires owning
// it or the admin role.
type ReviewHandler struct {
	reviews *service.ReviewService
	access  *service.AccessService
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(reviews *service.ReviewService, access *service.AccessService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, access: access}
}

type createReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// HandleCreate handles POST /api/books/{id}/reviews (authenticated).
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var req createReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), acct, bookID, req.Rating, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleListByBook handles GET /api/books/{id}/reviews (public).
func (h *ReviewHandler) HandleListByBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	reviews, err := h.reviews.ListByBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

type ratingResponse struct {
	BookID        int64   `json:"bookId"`
	AverageRating float64 `json:"averageRating"`
}

// HandleAverageRating handles GET /api/books/{id}/rating (public). A book
// with no reviews reports zero.
func (h *ReviewHandler) HandleAverageRating(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	avg, err := h.reviews.AverageRating(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{BookID: bookID, AverageRating: avg})
}

// HandleListByAccount handles GET /api/accounts/{id}/reviews (public).
func (h *ReviewHandler) HandleListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	reviews, err := h.reviews.ListByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleDelete handles DELETE /api/reviews/{id} (owner or admin). The
// review is loaded first so the ownership gate can run against its author.
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.access.RequireOwnerOrAdmin(acct, review.AccountID); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := h.reviews.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}
