package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/handler"
	sqliteRepo "github.com/avolkov/bookshelf/internal/repository/sqlite"
	"github.com/avolkov/bookshelf/internal/service"
)

// testAPI is a fully wired API over an in-memory database, mounted on the
// same route table the server uses.
type testAPI struct {
	router *chi.Mux
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err, "opening in-memory database")
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "HS256", 30*time.Minute)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accessService := service.NewAccessService(db.Accounts(), tokens, logger)
	accountService := service.NewAccountService(db.Accounts(), tokens, passwords, logger)
	lifecycleService := service.NewLifecycleService(db.Accounts(), logger)
	bookService := service.NewBookService(db.Books(), logger)
	reviewService := service.NewReviewService(db.Reviews(), db.Books(), logger)
	favoriteService := service.NewFavoriteService(db.Favorites(), db.Books(), logger)

	authHandler := handler.NewAuthHandler(accountService)
	accountHandler := handler.NewAccountHandler(accountService, accessService)
	adminHandler := handler.NewAdminHandler(lifecycleService)
	bookHandler := handler.NewBookHandler(bookService)
	reviewHandler := handler.NewReviewHandler(reviewService, accessService)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService)

	authenticate := handler.Authenticate(accessService)
	requireAdmin := handler.RequireAdmin(accessService)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/accounts", accountHandler.HandleRegister)
		r.Get("/books", bookHandler.HandleList)
		r.Get("/books/top-rated", bookHandler.HandleListTopRated)
		r.Get("/books/{id}", bookHandler.HandleGet)
		r.Get("/books/{id}/reviews", reviewHandler.HandleListByBook)
		r.Get("/books/{id}/rating", reviewHandler.HandleAverageRating)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/accounts/me", accountHandler.HandleMe)
			r.Patch("/accounts/{id}", accountHandler.HandleUpdate)
			r.Delete("/accounts/{id}", accountHandler.HandleDeactivate)
			r.Post("/books/{id}/reviews", reviewHandler.HandleCreate)
			r.Delete("/reviews/{id}", reviewHandler.HandleDelete)
			r.Get("/me/favorites", favoriteHandler.HandleList)
			r.Post("/me/favorites/{id}", favoriteHandler.HandleAdd)
			r.Delete("/me/favorites/{id}", favoriteHandler.HandleRemove)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, requireAdmin)
			r.Get("/accounts", accountHandler.HandleList)
			r.Post("/books", bookHandler.HandleCreate)
			r.Delete("/books/{id}", bookHandler.HandleDelete)
			r.Route("/admin/accounts", func(r chi.Router) {
				r.Post("/{id}/ban", adminHandler.HandleBan)
				r.Post("/{id}/unban", adminHandler.HandleUnban)
				r.Post("/{id}/promote", adminHandler.HandlePromote)
				r.Get("/banned", adminHandler.HandleListBanned)
			})
		})
	})

	return &testAPI{router: router, db: db, tokens: tokens}
}

// do executes a request against the router and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin creates an account over the API and returns its ID and a
// live token.
func (a *testAPI) registerAndLogin(t *testing.T, username string) (int64, string) {
	t.Helper()

	rr := a.do(t, http.MethodPost, "/api/accounts", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, "register %s: %s", username, rr.Body.String())

	var acct struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&acct))

	rr = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code, "login %s: %s", username, rr.Body.String())

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&login))
	return acct.ID, login.AccessToken
}

// makeAdmin flips the admin flag directly in storage; promoting over the
// API would need an existing admin.
func (a *testAPI) makeAdmin(t *testing.T, id int64) {
	t.Helper()
	_, err := a.db.Accounts().SetAdmin(context.Background(), id, true)
	require.NoError(t, err)
}

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

// =========================================================================
// AUTH TESTS
// =========================================================================

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin(t, "logintest")

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"username":`))
		rr := httptest.NewRecorder()
		api.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "logintest",
			"password": "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", errorKind(t, rr))
	})

	t.Run("unknown username gets the same response", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": "ghost",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerAndLogin(t, "middletest")

	t.Run("missing token", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts/me", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token resolves the account", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts/me", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var me struct {
			Username string `json:"username"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
		assert.Equal(t, "middletest", me.Username)
	})

	t.Run("password hash never serialized", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts/me", token, nil)
		assert.NotContains(t, rr.Body.String(), "passwordHash")
		assert.NotContains(t, rr.Body.String(), "$2a$")
	})
}

func TestRegisterEndpoint_Conflicts(t *testing.T) {
	api := newTestAPI(t)
	api.registerAndLogin(t, "firstcomer")

	rr := api.do(t, http.MethodPost, "/api/accounts", "", map[string]string{
		"username": "firstcomer",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_exists", errorKind(t, rr))
}

// =========================================================================
// ADMIN GATE TESTS
// =========================================================================

func TestAdminGate(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.registerAndLogin(t, "regular")
	adminID, adminToken := api.registerAndLogin(t, "admin")
	api.makeAdmin(t, adminID)

	t.Run("regular account is forbidden", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts", userToken, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "forbidden", errorKind(t, rr))
	})

	t.Run("unauthenticated is 401, not 403", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/accounts", adminToken, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestBanFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	targetID, targetToken := api.registerAndLogin(t, "target")
	adminID, adminToken := api.registerAndLogin(t, "sheriff")
	api.makeAdmin(t, adminID)

	// Ban the target.
	rr := api.do(t, http.MethodPost, fmt.Sprintf("/api/admin/accounts/%d/ban", targetID),
		adminToken, map[string]string{"reason": "spam"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var banned struct {
		IsBanned  bool    `json:"isBanned"`
		BanReason *string `json:"banReason"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&banned))
	assert.True(t, banned.IsBanned)
	require.NotNil(t, banned.BanReason)
	assert.Equal(t, "spam", *banned.BanReason)

	// The target's still-valid token is now rejected with 403.
	rr = api.do(t, http.MethodGet, "/api/accounts/me", targetToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Self-ban is rejected as a validation error.
	rr = api.do(t, http.MethodPost, fmt.Sprintf("/api/admin/accounts/%d/ban", adminID),
		adminToken, map[string]string{"reason": "oops"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Unban restores access.
	rr = api.do(t, http.MethodPost, fmt.Sprintf("/api/admin/accounts/%d/unban", targetID), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/accounts/me", targetToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// =========================================================================
// CATALOG TESTS
// =========================================================================

func TestBookEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.registerAndLogin(t, "reader")
	adminID, adminToken := api.registerAndLogin(t, "librarian")
	api.makeAdmin(t, adminID)

	t.Run("create requires admin", func(t *testing.T) {
		body := map[string]any{"title": "Solaris", "author": "Stanisław Lem", "pages": 204}

		rr := api.do(t, http.MethodPost, "/api/books", userToken, body)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = api.do(t, http.MethodPost, "/api/books", adminToken, body)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("list is public", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/books", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var books []struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&books))
		require.Len(t, books, 1)
		assert.Equal(t, "Solaris", books[0].Title)
	})

	t.Run("missing book is 404", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/books/9999", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", errorKind(t, rr))
	})

	t.Run("bad id is 400", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/books/banana", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestReviewAndFavoriteEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.registerAndLogin(t, "fan")
	_, otherToken := api.registerAndLogin(t, "rival")
	adminID, adminToken := api.registerAndLogin(t, "curator")
	api.makeAdmin(t, adminID)

	rr := api.do(t, http.MethodPost, "/api/books", adminToken,
		map[string]any{"title": "Blindsight", "author": "Peter Watts", "pages": 384})
	require.Equal(t, http.StatusCreated, rr.Code)
	var book struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&book))

	// Review the book.
	rr = api.do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/reviews", book.ID), userToken,
		map[string]any{"rating": 5, "text": "vampires in space"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var review struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&review))

	// Average rating is public and reflects the review.
	rr = api.do(t, http.MethodGet, fmt.Sprintf("/api/books/%d/rating", book.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rating struct {
		AverageRating float64 `json:"averageRating"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rating))
	assert.Equal(t, 5.0, rating.AverageRating)

	// A stranger cannot delete someone else's review; the owner can.
	rr = api.do(t, http.MethodDelete, fmt.Sprintf("/api/reviews/%d", review.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodDelete, fmt.Sprintf("/api/reviews/%d", review.ID), userToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Favorites flow.
	rr = api.do(t, http.MethodPost, fmt.Sprintf("/api/me/favorites/%d", book.ID), userToken, nil)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = api.do(t, http.MethodPost, fmt.Sprintf("/api/me/favorites/%d", book.ID), userToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/me/favorites", userToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var favs []struct {
		BookID int64 `json:"bookId"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&favs))
	require.Len(t, favs, 1)
	assert.Equal(t, book.ID, favs[0].BookID)

	// The rival's list is empty — favorites are per account.
	rr = api.do(t, http.MethodGet, "/api/me/favorites", otherToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rivalFavs []any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rivalFavs))
	assert.Empty(t, rivalFavs)

	rr = api.do(t, http.MethodDelete, fmt.Sprintf("/api/me/favorites/%d", book.ID), userToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

// =========================================================================
// PROFILE OWNERSHIP TESTS
// =========================================================================

func TestAccountUpdate_OwnershipGate(t *testing.T) {
	api := newTestAPI(t)
	ownerID, ownerToken := api.registerAndLogin(t, "profileowner")
	_, strangerToken := api.registerAndLogin(t, "meddler")

	patch := map[string]string{"email": "changed@example.com"}

	rr := api.do(t, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", ownerID), strangerToken, patch)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", ownerID), ownerToken, patch)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var updated struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, "changed@example.com", updated.Email)
}
