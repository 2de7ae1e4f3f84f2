package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/avolkov/bookshelf/internal/model"
)

// contextKey is an unexported type for context keys in this package.
// Using a package-private type (instead of a plain string) means no other
// package can read or shadow the account stored in a request context.
type contextKey int

const accountKey contextKey = iota

// BearerToken extracts the bearer credential from the Authorization header.
// Returns "" when the header is absent or not bearer-style — an empty token
// is valid input to the access pipeline and means "unauthenticated".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ContextWithAccount stores the resolved acting account in the context.
// Only the authentication middleware writes this; handlers read it back
// with AccountFromContext and can trust it for the rest of the request.
func ContextWithAccount(ctx context.Context, acct *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}

// AccountFromContext retrieves the acting account from the request context.
// Returns (nil, false) if the request never passed the authentication
// middleware.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	acct, ok := ctx.Value(accountKey).(*model.Account)
	return acct, ok && acct != nil
}
