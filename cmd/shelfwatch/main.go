// Package main is the entry point for the shelfwatch server: the
// product observation pipeline plus the thin HTTP API over it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/database"
	"github.com/shelfwatch/shelfwatch/internal/http/handlers"
	"github.com/shelfwatch/shelfwatch/internal/http/mw"
	"github.com/shelfwatch/shelfwatch/internal/http/routes"
	"github.com/shelfwatch/shelfwatch/internal/logging"
	"github.com/shelfwatch/shelfwatch/internal/repository"
	"github.com/shelfwatch/shelfwatch/internal/scheduler"
	"github.com/shelfwatch/shelfwatch/internal/service"
	"github.com/shelfwatch/shelfwatch/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting shelfwatch",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	// Sweeps interrupted by a previous shutdown stay open forever
	// otherwise; close them before the first new sweep.
	staleCount, err := repos.SchedulerLog.MarkStaleOpenRuns(context.Background())
	if err != nil {
		logger.Warn("failed to mark stale scheduler runs", "error", err)
	} else if staleCount > 0 {
		logger.Info("marked stale scheduler runs", "count", staleCount)
	}

	services, err := service.NewServices(cfg, db, repos, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Check-run retention
	go services.Cleanup.RunScheduledCleanup(ctx, cfg.CheckRunMaxAge, 24*time.Hour)

	var sched *scheduler.Scheduler
	var sweepControl handlers.SweepControl
	if cfg.SchedulerEnabled {
		sched = scheduler.New(repos, services.Check, cfg.CheckInterval(), logger)
		sched.Start(ctx)
		sweepControl = sched
	} else {
		logger.Info("scheduler disabled by configuration")
	}

	// Router and global middleware
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(mw.APIVersion())

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-API-Version"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Throttle(100))

	api := humachi.New(router, routes.NewHumaConfig(cfg.BaseURL))
	h := handlers.New(db, services.Product, services.Check, sweepControl, logger)
	routes.Register(api, h)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	// Graceful shutdown: stop taking requests, stop the scheduler, let
	// the in-flight sweep finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	cancel()
	if sched != nil {
		sched.Stop()
	}
	logger.Info("shutdown complete")
}
