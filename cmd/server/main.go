package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/shatranj/arena/internal/config"
	"github.com/shatranj/arena/internal/database"
	"github.com/shatranj/arena/internal/handler/health"
	"github.com/shatranj/arena/internal/migrations"
	"github.com/shatranj/arena/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	logger.Info("connected to sqlite", "path", cfg.DBPath)

	version, err := migrations.Run(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("schema ready", "version", version)

	store := server.NewDocStore(db)

	// --- Live games ---
	rooms := server.NewRooms()
	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, store, rooms, cfg.AdminEmail, cfg.AdminPassword, cfg.InviteTTL); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	// --- HTTP Server ---
	broker := server.NewBroker()
	srv := server.New(cfg.HTTPAddr, logger, store, rooms, broker, server.Options{
		SPADir:          cfg.SPADir,
		SessionTTL:      cfg.SessionTTL,
		InviteTTL:       cfg.InviteTTL,
		PairingDelay:    cfg.PairingDelay,
		PuzzleTimeLimit: cfg.PuzzleTimeLimit,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"sqlite": database.Checker{DB: db},
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
