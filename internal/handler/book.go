package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/service"
)

// BookHandler owns the catalog endpoints. Reads are public; mutations are
// mounted behind the admin gate.
type BookHandler struct {
	books *service.BookService
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  int    `json:"pages"`
}

// HandleCreate handles POST /api/books (admin).
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.Create(r.Context(), req.Title, req.Author, req.Pages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// HandleList handles GET /api/books (public).
func (h *BookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	books, err := h.books.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// HandleListTopRated handles GET /api/books/top-rated (public).
func (h *BookHandler) HandleListTopRated(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	books, err := h.books.ListTopRated(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// HandleGet handles GET /api/books/{id} (public).
func (h *BookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type updateBookRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Pages  *int    `json:"pages"`
}

// HandleUpdate handles PATCH /api/books/{id} (admin).
func (h *BookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateBookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.Update(r.Context(), id, model.BookPatch{
		Title:  req.Title,
		Author: req.Author,
		Pages:  req.Pages,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// HandleDelete handles DELETE /api/books/{id} (admin).
func (h *BookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}
