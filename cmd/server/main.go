package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medicsearch/rcpgest/internal/api"
	"github.com/medicsearch/rcpgest/internal/config"
	"github.com/medicsearch/rcpgest/internal/filters"
	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/pipeline"
	"github.com/medicsearch/rcpgest/internal/store"
	"github.com/medicsearch/rcpgest/internal/structure"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	profile, err := cfg.Profile()
	if err != nil {
		log.Error("invalid profile", "file", cfg.ProfileFile, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	cache := filters.New(st)

	engine := structure.FromProfile(profile, log)
	engine.FallbackWhole = true

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, engine, st, rec, log)
	orch.OnStored(cache.Invalidate)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, st, cache, engine, log, cfg, api.WithMetrics(rec, metrics.HTTPHandler(reg)))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		st.Close()
	}()

	log.Info("starting rcpgest", "port", cfg.Port, "db", cfg.DBPath, "cutoff", profile.Cutoff, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
