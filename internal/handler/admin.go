package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/service"
)

// AdminHandler owns the account lifecycle endpoints. Every route here is
// mounted behind Authenticate + RequireAdmin; the handlers only parse,
// delegate and render — the guards live in the lifecycle service.
type AdminHandler struct {
	lifecycle *service.LifecycleService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(lifecycle *service.LifecycleService) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle}
}

// transition factors the shared shape of the lifecycle endpoints: resolve
// the actor, parse the target id, run one state transition, render the
// resulting account.
func (h *AdminHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(actor *model.Account, targetID int64) (*model.Account, error),
) {
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

	updated, err := apply(acct, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandlePromote handles POST /api/admin/accounts/{id}/promote.
func (h *AdminHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Promote(r.Context(), actor, targetID)
	})
}

// HandleDemote handles POST /api/admin/accounts/{id}/demote.
func (h *AdminHandler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Demote(r.Context(), actor, targetID)
	})
}

type banRequest struct {
	Reason string `json:"reason"`
}

// HandleBan handles POST /api/admin/accounts/{id}/ban. The body is
// optional; an empty reason is recorded as such.
func (h *AdminHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Ban(r.Context(), actor, targetID, req.Reason)
	})
}

// HandleUnban handles POST /api/admin/accounts/{id}/unban.
func (h *AdminHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Unban(r.Context(), actor, targetID)
	})
}

// HandleDeactivate handles POST /api/admin/accounts/{id}/deactivate.
func (h *AdminHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Deactivate(r.Context(), actor, targetID)
	})
}

// HandleActivate handles POST /api/admin/accounts/{id}/activate.
func (h *AdminHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Account, targetID int64) (*model.Account, error) {
		return h.lifecycle.Activate(r.Context(), actor, targetID)
	})
}

// HandleListAdmins handles GET /api/admin/accounts/admins.
func (h *AdminHandler) HandleListAdmins(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	accounts, err := h.lifecycle.ListAdmins(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleListBanned handles GET /api/admin/accounts/banned.
func (h *AdminHandler) HandleListBanned(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	accounts, err := h.lifecycle.ListBanned(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleListInactive handles GET /api/admin/accounts/inactive.
func (h *AdminHandler) HandleListInactive(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	accounts, err := h.lifecycle.ListInactive(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}
