package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stayride/internal/infra/config"
	ginserver "stayride/internal/infra/http/gin"
	"stayride/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(obs.LoggerOptions{Env: env, Level: os.Getenv("LOG_LEVEL")})

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg = config.Fallback()
		cfg.Env = env
	} else {
		logger = obs.NewLogger(obs.LoggerOptions{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	}
	slog.SetDefault(logger)
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.loadListingFixtures(ctx, fixturePath(cfg.ListingsFixtures, "listings.json"), logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: app.ready}, app.handlers)

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		if err := app.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()
	go func() {
		defer workers.Done()
		if err := app.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		workers.Wait()
		app.close()
		os.Exit(1)
	}
	workers.Wait()
	logger.Info("HTTP server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
