package handler

// Response helpers shared by every handler: one JSON writer and one error
// mapper, so all endpoints speak the same shape:
//
//	{"error": "not_found", "message": "account not found with id 7"}
//
// The mapper is where domain error kinds become HTTP status codes. The
// services never see a status code; a different transport could map the
// same kinds to gRPC codes without touching them.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/bookshelf/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error     string `json:"error"`               // Machine-readable kind (e.g. "not_found")
	Message   string `json:"message"`             // Human-readable description
	Field     string `json:"field,omitempty"`     // Offending field, when known
	Reference string `json:"reference,omitempty"` // Log-correlation reference for 500s
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// Unknown errors (anything that is not an *apperror.AppError) are treated
// as internal: the client gets a generic message plus an opaque reference,
// and the real error is logged server-side under the same reference.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || errors.Is(err, apperror.ErrInternal) {
		internal := apperror.Internal()
		slog.Error("internal error",
			slog.String("reference", internal.Reference),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_error",
			Message:   internal.Message,
			Reference: internal.Reference,
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrAlreadyExists):
		status = http.StatusConflict
		errorType = "already_exists"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// pathID parses the {id} route parameter as an int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}

// listParams reads the limit/skip query parameters. Bad or missing values
// fall back to zero; the repositories clamp to their defaults.
func listParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	return limit, offset
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
