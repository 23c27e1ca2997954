package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kmnkit/vietnamese-word-cards/internal/api"
	"github.com/kmnkit/vietnamese-word-cards/internal/config"
	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository/sqlstore"
	"github.com/kmnkit/vietnamese-word-cards/internal/services"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("Progress Collaborator Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_driver=%s", cfg.DBDriver)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("cors_allowed_origins=%v", cfg.CORSAllowedOrigins)

	database, err := db.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	progressRepo := sqlstore.NewProgressRepository(database)
	sessionRepo := sqlstore.NewSessionRepository(database)

	srv := &api.Server{
		DB:              database,
		ProgressService: services.NewProgressService(progressRepo, sessionRepo),
		SessionService:  services.NewSessionService(sessionRepo),
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("HTTP server error: %v", err)
	}

	log.Info("===========================================")
	log.Info("Progress Collaborator Stopped")
	log.Info("===========================================")
}
