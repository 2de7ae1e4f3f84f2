package handler

import (
	"net/http"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/service"
)

// Authenticate resolves the bearer token into a trusted account and stores
// it in the request context. Requests that fail any resolution stage are
// rejected here with the stage's status; handlers behind this middleware
// can assume auth.AccountFromContext succeeds.
func Authenticate(access *service.AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct, err := access.ResolveAccount(r.Context(), auth.BearerToken(r))
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAccount(r.Context(), acct)))
		})
	}
}

// RequireAdmin layers the role gate on top of Authenticate. It must be
// mounted after it — the account is taken from the request context.
func RequireAdmin(access *service.AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct, ok := auth.AccountFromContext(r.Context())
			if !ok {
				// Authenticate was not mounted; treat as unauthenticated
				// rather than panic.
				writeError(w, apperror.Unauthorized("authentication required"))
				return
			}
			if err := access.RequireAdmin(acct); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
