package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/archive"
	httpadapter "github.com/JoergFritschi-crypto/garden-climate/internal/adapter/http"
	kafkaadapter "github.com/JoergFritschi-crypto/garden-climate/internal/adapter/kafka"
	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/mapbox"
	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/openmeteo"
	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/postgres"
	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/valkey"
	"github.com/JoergFritschi-crypto/garden-climate/internal/config"
	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
	"github.com/JoergFritschi-crypto/garden-climate/internal/pipeline"
	"github.com/JoergFritschi-crypto/garden-climate/internal/scheduler"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	provider := openmeteo.NewClient(
		openmeteo.DefaultOptions(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, cfg.OpenMeteoMaxRetries),
		logger, metrics,
	)

	var (
		persist   pipeline.Persistence
		readiness httpadapter.Readiness
	)

	var store *postgres.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate postgres", "error", err)
			os.Exit(1)
		}
		persist.Store = store
		readiness = append(readiness, store)
	} else {
		logger.Info("report store disabled")
	}

	if cfg.ValkeyAddr != "" {
		cache, err := valkey.New(ctx, cfg.ValkeyAddr, cfg.ReportCacheTTL, logger)
		if err != nil {
			// Serve without the cache.
			logger.Warn("valkey unavailable, report cache disabled", "error", err)
		} else {
			defer cache.Close()
			persist.Cache = cache
			readiness = append(readiness, cache)
		}
	}

	if cfg.ArchiveEndpoint != "" {
		arch, err := archive.New(ctx, archive.Config{
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			Bucket:    cfg.ArchiveBucket,
			UseSSL:    cfg.ArchiveUseSSL,
		}, logger)
		if err != nil {
			logger.Warn("archive unavailable, datasets will not be archived", "error", err)
		} else {
			persist.Archive = arch
		}
	}

	service := pipeline.NewReportService(
		provider,
		geocoder,
		pipeline.NewAssembler(cfg.ParallelAnalysis, metrics),
		persist,
		pipeline.ServiceConfig{HistoryYears: cfg.HistoryYears, MaxAge: cfg.ReportMaxAge},
		logger,
		metrics,
	)

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(service, logger), writer, logger, metrics, cfg.BatchSize)
		readiness = append(readiness, p)

		// Start request pipeline.
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka request pipeline disabled")
	}

	var refresh *scheduler.Scheduler
	if store != nil && cfg.RefreshSchedule != "" {
		refresh, err = scheduler.New(service, scheduler.Options{Schedule: cfg.RefreshSchedule}, logger)
		if err != nil {
			logger.Error("failed to create refresh scheduler", "error", err)
			os.Exit(1)
		}
		refresh.Start()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness, service, logger)

	// Start HTTP server.
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if refresh != nil {
		if err := refresh.Stop(shutdownCtx); err != nil {
			logger.Error("refresh scheduler stop error", "error", err)
		}
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
