// cmd/menu-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menu-advisor/internal/api"
	"menu-advisor/internal/common/cache"
	"menu-advisor/internal/common/config"
	"menu-advisor/internal/common/database"
	"menu-advisor/internal/common/export"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/observability"
	runanalysis "menu-advisor/internal/workers/analysis/run-analysis"
	"menu-advisor/pkg/registry"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backends are retried at startup while containers come up.
var startupRetry = commonhttp.RetryPolicy{MaxAttempts: 10, InitialDelay: 2 * time.Second}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting menu advisor",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	ctx := context.Background()

	campuses := registry.Default()
	if path := cfg.Campuses.RegistryPath; path != "" {
		campuses, err = registry.LoadRegistry(path)
		if err != nil {
			zapLog.Fatal("campus registry load failed", zap.Error(err))
		}
	}

	// --- Cache backend ---
	var (
		store      cache.Cache
		closeCache func() error
	)
	err = commonhttp.RetryWithBackoff(ctx, startupRetry, log, "cache backend "+cfg.Cache.Backend, func(ctx context.Context) error {
		var err error
		store, closeCache, err = cache.Open(ctx, cfg, log)
		return err
	})
	if err != nil {
		zapLog.Fatal("cache backend failed after retries", zap.Error(err))
	}
	defer closeCache()
	zapLog.Info("Cache ready", zap.String("backend", cfg.Cache.Backend))

	// --- Elasticsearch sink ---
	deps := api.Dependencies{Cache: store}
	if cfg.Export.Elasticsearch {
		var es *elasticsearch.Client
		err = commonhttp.RetryWithBackoff(ctx, startupRetry, log, "Elasticsearch connection", func(context.Context) error {
			var err error
			if es, err = database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
				return err
			}
			return database.PingElasticsearch(es)
		})
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deps.Sink = export.NewElasticsearchSink(es, cfg.Database.Elasticsearch.Index, log)
		deps.Ready = func(context.Context) error { return database.PingElasticsearch(es) }
		zapLog.Info("Elasticsearch connected successfully")
	}

	sessions := commonhttp.NewSessionFactory(
		config.GetDuration(cfg.Upstream.RequestTimeout),
		commonhttp.WithUserAgent(cfg.Upstream.UserAgent),
	)
	deps.Analyzer = runanalysis.Build(cfg, sessions, campuses, store, obs, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(cfg, deps, log).HTTPServer()

	go func() {
		zapLog.Info("HTTP server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("llm", cfg.LLM.Enabled()),
			zap.Bool("nutrition", cfg.Upstream.ExtractNutrition),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Menu advisor stopped")
}
