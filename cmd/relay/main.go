package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/collector"
	"github.com/qepting91/reddit-relay/internal/config"
	"github.com/qepting91/reddit-relay/internal/dashboard"
	"github.com/qepting91/reddit-relay/internal/ingest"
	"github.com/qepting91/reddit-relay/internal/resolver"
	"github.com/qepting91/reddit-relay/internal/server"
)

func main() {
	// 1. Setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	gin.SetMode(gin.ReleaseMode)

	// 2. Resolver presets
	presets := resolver.DefaultPresets()
	if cfg.Resolver.PresetsFile != "" {
		loaded, err := ingest.LoadPresets(cfg.Resolver.PresetsFile)
		if err != nil {
			logger.Error("Failed to load presets", "path", cfg.Resolver.PresetsFile, "error", err)
			os.Exit(1)
		}
		presets = loaded
	}
	res := resolver.New(
		resolver.WithPresets(presets),
		resolver.WithAttemptTimeout(cfg.Resolver.AttemptTimeout),
		resolver.WithFeedLimit(cfg.Resolver.FeedLimit),
		resolver.WithAllowedHosts(cfg.Resolver.AllowedHosts),
		resolver.WithLogger(logger),
	)
	logger.Info("Resolver initialized", "presets", len(presets), "attempt_timeout", cfg.Resolver.AttemptTimeout.String())

	// 3. Dashboard (optional, needs a collector)
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	if src, err := collector.NewCollector(cfg.Collector); err != nil {
		logger.Warn("Dashboard disabled", "error", err)
	} else {
		dash := dashboard.New(src, cfg.Server.ExportPath, browse.OptionsFromConfig(cfg.Browse), logger)
		opts = append(opts, server.WithDashboard(dash.Serve))
		logger.Info("Dashboard enabled", "mode", cfg.Collector.Mode)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(res, opts...).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 4. Serve
	go func() {
		logger.Info("Relay listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Relay failed", "error", err)
			os.Exit(1)
		}
	}()

	// 5. Graceful Shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Relay stopped")
}
