// Package server wires the application together: it builds the dependency
// chain (DB → repositories → services → handlers), mounts the route table
// and runs the HTTP server with graceful shutdown.
//
// The wiring all happens in one place so the rest of the codebase stays
// free of construction logic: services receive repository interfaces,
// handlers receive services, and nothing reaches past its own layer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/handler"
	"github.com/avolkov/bookshelf/internal/middleware"
	sqliteRepo "github.com/avolkov/bookshelf/internal/repository/sqlite"
	"github.com/avolkov/bookshelf/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port         int
	DBPath       string
	JWTSecret    string
	JWTAlgorithm string
	TokenTTL     time.Duration
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown, after in-flight requests finish.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and returns a ready-to-start
// server.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the services and mounts the route table.
//
// Route groups, innermost guard first:
//
//	public          — register, login, catalog reads
//	authenticated   — profile, reviews, favorites
//	owner-or-admin  — account update/deactivate, review delete (checked
//	                  in the handler against the resource owner)
//	admin           — account listings/lookups, lifecycle transitions,
//	                  catalog mutations
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTAlgorithm, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	accessService := service.NewAccessService(s.db.Accounts(), tokens, s.logger)
	accountService := service.NewAccountService(s.db.Accounts(), tokens, passwords, s.logger)
	lifecycleService := service.NewLifecycleService(s.db.Accounts(), s.logger)
	bookService := service.NewBookService(s.db.Books(), s.logger)
	reviewService := service.NewReviewService(s.db.Reviews(), s.db.Books(), s.logger)
	favoriteService := service.NewFavoriteService(s.db.Favorites(), s.db.Books(), s.logger)

	authHandler := handler.NewAuthHandler(accountService)
	accountHandler := handler.NewAccountHandler(accountService, accessService)
	adminHandler := handler.NewAdminHandler(lifecycleService)
	bookHandler := handler.NewBookHandler(bookService)
	reviewHandler := handler.NewReviewHandler(reviewService, accessService)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService)

	authenticate := handler.Authenticate(accessService)
	requireAdmin := handler.RequireAdmin(accessService)

	s.router.Route("/api", func(r chi.Router) {
		// Public.
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/accounts", accountHandler.HandleRegister)
		r.Get("/books", bookHandler.HandleList)
		r.Get("/books/top-rated", bookHandler.HandleListTopRated)
		r.Get("/books/{id}", bookHandler.HandleGet)
		r.Get("/books/{id}/reviews", reviewHandler.HandleListByBook)
		r.Get("/books/{id}/rating", reviewHandler.HandleAverageRating)
		r.Get("/accounts/{id}/reviews", reviewHandler.HandleListByAccount)
		r.Get("/accounts/username/{username}", accountHandler.HandleGetByUsername)

		// Authenticated. Ownership checks run inside the handlers that
		// need them.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/accounts/me", accountHandler.HandleMe)
			r.Patch("/accounts/{id}", accountHandler.HandleUpdate)
			r.Delete("/accounts/{id}", accountHandler.HandleDeactivate)

			r.Post("/books/{id}/reviews", reviewHandler.HandleCreate)
			r.Delete("/reviews/{id}", reviewHandler.HandleDelete)

			r.Get("/me/favorites", favoriteHandler.HandleList)
			r.Get("/me/favorites/{id}", favoriteHandler.HandleContains)
			r.Post("/me/favorites/{id}", favoriteHandler.HandleAdd)
			r.Delete("/me/favorites/{id}", favoriteHandler.HandleRemove)
		})

		// Admin only.
		r.Group(func(r chi.Router) {
			r.Use(authenticate, requireAdmin)

			r.Get("/accounts", accountHandler.HandleList)
			r.Get("/accounts/{id}", accountHandler.HandleGetByID)
			r.Get("/accounts/email/{email}", accountHandler.HandleGetByEmail)

			r.Post("/books", bookHandler.HandleCreate)
			r.Patch("/books/{id}", bookHandler.HandleUpdate)
			r.Delete("/books/{id}", bookHandler.HandleDelete)

			r.Route("/admin/accounts", func(r chi.Router) {
				r.Get("/admins", adminHandler.HandleListAdmins)
				r.Get("/banned", adminHandler.HandleListBanned)
				r.Get("/inactive", adminHandler.HandleListInactive)
				r.Post("/{id}/promote", adminHandler.HandlePromote)
				r.Post("/{id}/demote", adminHandler.HandleDemote)
				r.Post("/{id}/ban", adminHandler.HandleBan)
				r.Post("/{id}/unban", adminHandler.HandleUnban)
				r.Post("/{id}/deactivate", adminHandler.HandleDeactivate)
				r.Post("/{id}/activate", adminHandler.HandleActivate)
			})
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
