package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/use-agent/postmeta/api"
	"github.com/use-agent/postmeta/api/handler"
	"github.com/use-agent/postmeta/browser"
	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/jobs"
	"github.com/use-agent/postmeta/scraper"
	"github.com/use-agent/postmeta/webhook"
)

const version = "0.1.0"

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	logger := slog.Default()
	logger.Info("postmeta starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"max_concurrent_jobs", cfg.Jobs.MaxConcurrent,
		"fallback_engine", cfg.Extract.FallbackEngine,
	)

	// ── 3. Render sessions and scraper ──────────────────────────────
	manager := browser.NewManager(cfg.Browser, cfg.Session, logger)
	if !manager.CookiesConfigured() {
		logger.Warn("session cookies not configured, posts may hit the login wall")
	}
	sc := scraper.New(cfg, scraper.BrowserOpener(manager), scraper.Options{
		Static:          browser.NewStaticFetcher(cfg.Session, cfg.Browser.NavigationTimeout),
		ProxyConfigured: manager.ProxyConfigured(),
		Logger:          logger,
	})

	// ── 4. Job coordinator with webhook delivery ────────────────────
	coordinator := jobs.New(cfg.Jobs, cfg.Webhook.DefaultURL, sc, webhook.New(cfg.Webhook), logger)

	// ── 5. Setup router ─────────────────────────────────────────────
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	router := api.NewRouter(ctx, cfg, coordinator, handler.Build{
		Version:           version,
		ProxyConfigured:   manager.ProxyConfigured(),
		CookiesConfigured: manager.CookiesConfigured(),
	}, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHTTP()
	if err := srv.Shutdown(httpCtx); err != nil {
		logger.Error("HTTP server forced shutdown", "error", err)
	} else {
		logger.Info("HTTP server drained gracefully")
	}

	// Running jobs get one job timeout to finish; their sessions close on exit.
	jobsCtx, cancelJobs := context.WithTimeout(context.Background(), cfg.Browser.JobTimeout)
	defer cancelJobs()
	if err := coordinator.Shutdown(jobsCtx); err != nil {
		logger.Warn("jobs cancelled at shutdown", "error", err)
	}

	logger.Info("postmeta stopped")
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

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
