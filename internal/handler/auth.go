package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/service"
)

// AuthHandler owns the login endpoint.
type AuthHandler struct {
	accounts *service.AccountService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string         `json:"accessToken"`
	TokenType   string         `json:"tokenType"`
	Account     *model.Account `json:"account"`
}

// HandleLogin handles POST /api/auth/login.
//
// Every failure — unknown username, wrong password, deactivated or banned
// account — comes back as the same 401; the distinction lives only in the
// server logs.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		Account:     result.Account,
	})
}
