package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pagecrawl/api"
	"github.com/use-agent/pagecrawl/auth"
	"github.com/use-agent/pagecrawl/browser"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/jobs"
	"github.com/use-agent/pagecrawl/scraper"
	"github.com/use-agent/pagecrawl/sites"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pagecrawl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrentJobs", cfg.Jobs.MaxConcurrentJobs,
		"maxJobsQueue", cfg.Jobs.MaxJobsQueue,
	)

	if err := sites.DefaultTable.Validate(); err != nil {
		slog.Error("invalid page type table", "error", err)
		os.Exit(1)
	}

	// ── 3. Browser (launched on first fetch) ────────────────────────
	bm := browser.NewManager(cfg.Browser, slog.Default())
	defer bm.Close()

	// ── 4. Caches, login and the fetch service ──────────────────────
	sessions := cache.NewSessions(cfg.Cache.SessionCapacity, cfg.Cache.SessionTTL)
	responses := cache.NewResponses(cfg.Cache.ResponseCapacity, cfg.Cache.ResponseTTL)

	flow := auth.TwitterFlow
	flow.StepTimeout = cfg.Login.StepTimeout
	authn := auth.New(flow, cfg.Login.Username, cfg.Login.Password, slog.Default())

	svc := scraper.New(bm, sites.DefaultTable, authn, sessions, cfg.Scraper, slog.Default())

	// ── 5. Job registry and sweep ───────────────────────────────────
	registry := jobs.NewRegistry(cfg.Jobs.Capacity, cfg.Jobs.TTL, slog.Default())
	sched := jobs.NewScheduler(registry, slog.Default())
	if err := sched.Start(cfg.Jobs.Schedule); err != nil {
		slog.Error("failed to start job scheduler", "schedule", cfg.Jobs.Schedule, "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Parser:    svc,
		Jobs:      registry,
		Responses: responses,
		Sessions:  sessions,
		Table:     sites.DefaultTable,
		JobCount:  registry,
		Browser:   bm,
		StartTime: time.Now(),
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sched.Stop() and bm.Close() run via defer; the latter kills Chrome.
	slog.Info("pagecrawl stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
