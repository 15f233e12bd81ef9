package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/spacebook/internal/config"
	"github.com/msomdec/spacebook/internal/handler"
	"github.com/msomdec/spacebook/internal/identity"
	"github.com/msomdec/spacebook/internal/liked"
	"github.com/msomdec/spacebook/internal/repository/sqlite"
	"github.com/msomdec/spacebook/internal/service"
	"github.com/msomdec/spacebook/internal/session"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	idp := identity.NewService(db.Accounts(), db.OneTimeCodes(), db.Revocations(), identity.LogMailer{}, identity.Config{
		JWTSecret:                cfg.Auth.JWTSecret,
		BcryptCost:               cfg.Auth.BcryptCost,
		SessionTTL:               cfg.Auth.SessionTTL,
		CodeTTL:                  cfg.Auth.OTPTTL,
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
	})

	limiter := service.NewTokenBucketPerMinute(cfg.Auth.OTPResendPerMinute, 3)
	defer limiter.Close()

	store := session.New(db.Storage(), session.WithName(cfg.Database.StorageName))
	likes := liked.New()
	hub := handler.NewHub()
	authService := service.NewAuthService(idp, db.Profiles(), store, hub, limiter, likes)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, store, likes, hub)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		// Session streams end when the process is signalled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Session routes answer 503 until this completes.
	if err := authService.Bootstrap(ctx); err != nil {
		slog.Error("failed to restore session", "error", err)
	}
	slog.Info("session store hydrated", "authenticated", store.IsAuthenticated())

	go idp.RunJanitor(ctx, time.Hour)

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
