package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/service"
)

// AccountHandler owns registration, profile and account lookup endpoints.
type AccountHandler struct {
	accounts *service.AccountService
	access   *service.AccessService
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts *service.AccountService, access *service.AccessService) *AccountHandler {
	return &AccountHandler{accounts: accounts, access: access}
}

// actor returns the account resolved by the Authenticate middleware.
func actor(r *http.Request) (*model.Account, error) {
	acct, ok := auth.AccountFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("authentication required")
	}
	return acct, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles POST /api/accounts (public).
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, acct)
}

// HandleMe handles GET /api/accounts/me (authenticated).
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	acct, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleList handles GET /api/accounts (admin). Only active accounts are
// listed; banned and deactivated ones live under the admin listings.
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	accounts, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleGetByID handles GET /api/accounts/{id} (admin).
func (h *AccountHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleGetByUsername handles GET /api/accounts/username/{username} (public).
func (h *AccountHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, apperror.ValidationFailed("username", "username is required"))
		return
	}

	acct, err := h.accounts.GetByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleGetByEmail handles GET /api/accounts/email/{email} (admin).
func (h *AccountHandler) HandleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		writeError(w, apperror.ValidationFailed("email", "email is required"))
		return
	}

	acct, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Admin    *bool   `json:"isAdmin"`
	Active   *bool   `json:"isActive"`
}

// HandleUpdate handles PATCH /api/accounts/{id} (owner or admin). Absent
// fields are left untouched; role and lifecycle flags only take effect when
// an admin edits someone else.
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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
	if err := h.access.RequireOwnerOrAdmin(acct, id); err != nil {
		writeError(w, err)
		return
	}

	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), acct, id, service.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
		Active:   req.Active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDeactivate handles DELETE /api/accounts/{id} (owner or admin). This
// is the self-service soft delete: the row stays, the account just cannot
// authenticate any more.
func (h *AccountHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
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
	if err := h.access.RequireOwnerOrAdmin(acct, id); err != nil {
		writeError(w, err)
		return
	}

	deactivated, err := h.accounts.Deactivate(r.Context(), acct, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deactivated)
}
