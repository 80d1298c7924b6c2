// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/api"
	"github.com/AI-Template-SDK/senso-visibility/internal/cache"
	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/logging"
	"github.com/AI-Template-SDK/senso-visibility/internal/metrics"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers"
	"github.com/AI-Template-SDK/senso-visibility/internal/store"
	"github.com/AI-Template-SDK/senso-visibility/services"
	"github.com/AI-Template-SDK/senso-visibility/workflows"
)

func main() {
	envErr := godotenv.Load()
	if envErr != nil {
		envErr = godotenv.Load("dev.env")
	}

	cfg := config.Load()
	logger := logging.New(cfg.Log, os.Stdout)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env or dev.env file loaded")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("default_model", cfg.Analysis.DefaultModel).
		Str("mode", cfg.Analysis.Mode).
		Bool("openai_key", cfg.OpenAIAPIKey != "").
		Bool("anthropic_key", cfg.AnthropicAPIKey != "").
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	sentimentCache := newSentimentCache(ctx, cfg, logger)
	defer sentimentCache.Close()

	var reportStore *store.ReportStore
	if cfg.Database.Enabled {
		db, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		reportStore = store.NewReportStore(db)
		if err := reportStore.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare report schema")
		}
		logger.Info().Str("host", cfg.Database.Host).Str("name", cfg.Database.Name).Msg("report history enabled")
	} else {
		logger.Warn().Msg("no database configured, report history disabled")
	}

	costService := services.NewCostService()
	analysisService := services.NewAnalysisService(
		cfg,
		providers.NewFactory(cfg, recorder),
		services.NewContextRunnerService(cfg.Analysis, services.NewMentionService(), services.NewScoringService(), services.NewCitationService(), recorder),
		services.NewReportService(costService, services.NewAnalyticsService()),
		sentimentCache,
		recorder,
	)

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		logger.Info().Msg("development mode, inngest signing key verification disabled")
	}

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "senso-visibility",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create inngest client")
	}

	var saver workflows.ReportSaver
	var reports api.ReportStore
	if reportStore != nil {
		saver = reportStore
		reports = reportStore
	}
	processor := workflows.NewAnalysisProcessor(analysisService, saver, logger.With().Str("component", "workflow").Logger())
	processor.SetClient(client)
	if cfg.Alerts.SlackWebhookURL != "" {
		processor.SetNotifier(workflows.NewSlackNotifier(cfg.Alerts.SlackWebhookURL))
	}
	processor.AnalyzeRequested()

	if cfg.Refresh.Enabled && reportStore != nil {
		scheduled := workflows.NewScheduledProcessor(reportStore, cfg.Refresh, logger.With().Str("component", "scheduler").Logger())
		scheduled.SetClient(client)
		scheduled.RefreshTrackedBrands()
		logger.Info().Str("cron", cfg.Refresh.Cron).Msg("scheduled brand refresh enabled")
	}

	handler := api.NewHandler(analysisService, costService, reports, client)
	router := api.NewRouter(handler, logger, api.RouterOptions{
		Gatherer:       registry,
		Inngest:        client.Serve(),
		RequestTimeout: cfg.Analysis.Timeout + 30*time.Second,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting senso-visibility service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newSentimentCache prefers Redis and falls back to an in-process cache.
func newSentimentCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Client {
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("sentiment cache backed by redis")
			return redisClient
		}
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory sentiment cache")
	}
	return cache.NewMemoryClient(0)
}
