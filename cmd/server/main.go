// Package main is the entry point for the bookshelf server. It reads
// configuration from the environment, builds the logger and hands off to
// internal/server; no business logic lives here.
//
// Configuration:
//
//	PORT               listen port (default 8080)
//	DB_PATH            SQLite database file (default data/bookshelf.db)
//	JWT_SECRET         token signing secret, required, 16+ characters
//	JWT_ALGORITHM      HS256 | HS384 | HS512 (default HS256)
//	TOKEN_TTL_MINUTES  token lifetime in minutes (default 30)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avolkov/bookshelf/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/bookshelf.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// The secret is required: issuing tokens with a default value would
	// make every deployment's tokens forgeable. Generate one with
	// `openssl rand -hex 32`.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	jwtAlgorithm := os.Getenv("JWT_ALGORITHM")
	if jwtAlgorithm == "" {
		jwtAlgorithm = "HS256"
	}

	tokenTTL := 30 * time.Minute
	if ttlStr := os.Getenv("TOKEN_TTL_MINUTES"); ttlStr != "" {
		minutes, err := strconv.Atoi(ttlStr)
		if err != nil || minutes <= 0 {
			logger.Error("invalid TOKEN_TTL_MINUTES value", slog.String("value", ttlStr))
			os.Exit(1)
		}
		tokenTTL = time.Duration(minutes) * time.Minute
	}

	cfg := server.Config{
		Port:         port,
		DBPath:       dbPath,
		JWTSecret:    jwtSecret,
		JWTAlgorithm: jwtAlgorithm,
		TokenTTL:     tokenTTL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
