package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/reviewsync/internal/api"
	"github.com/vytor/reviewsync/internal/config"
	"github.com/vytor/reviewsync/internal/db"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/repository/sqlite"
	"github.com/vytor/reviewsync/internal/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	log := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("reviewsync server stopped")
}

func run(cfg config.Config, log *logger.Logger) error {
	log.Info("reviewsync server starting")
	log.WithFields(map[string]any{
		"addr":            cfg.Addr,
		"db_path":         cfg.DBPath,
		"request_timeout": cfg.RequestTimeout,
		"log_level":       cfg.LogLevel,
	}).Debug("configuration loaded")

	params, err := flashcard.LoadParameters(cfg.SchedulerParams)
	if err != nil {
		return err
	}
	scheduler, err := flashcard.NewScheduler(params)
	if err != nil {
		return err
	}
	log.Info("scheduler parameters: %s", params.Version)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	srv := &api.Server{
		DB:             database,
		ReviewService:  services.NewReviewService(sqlite.NewCardRepository(database.DB), scheduler),
		StatsService:   services.NewStatsService(sqlite.NewStatsRepository(database.DB), services.WithParametersVersion(params.Version)),
		RequestTimeout: cfg.RequestTimeout,
	}
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
