// Package main serves a local Starling API emulator backed by a JSON
// fixture file, for running starling-sync end to end without a bank.
//
// The fixture file maps bearer tokens to account data:
//
//	{"joint-token": {"accounts": [...], "balance": {...}, "savingsGoals": [...], "feeds": {"<categoryUid>": [...]}}}
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling/starlingtest"
)

const (
	defaultPort     = "9000"
	defaultFixtures = "./data/fixtures.json"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Get configuration from environment variables.
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	fixtures := os.Getenv("FIXTURES_PATH")
	if fixtures == "" {
		fixtures = defaultFixtures
	}

	fake, err := starlingtest.LoadFile(fixtures)
	if err != nil {
		slog.Error("failed to load fixtures", "error", err, "path", fixtures)
		os.Exit(1)
	}
	slog.Info("fixtures loaded", "path", fixtures)

	handler := fake.Router()
	handler = middleware.Timeout(60 * time.Second)(handler)
	handler = middleware.Logger(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)

	addr := fmt.Sprintf(":%s", port)
	slog.Info("starting Starling API emulator", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
