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

	"github.com/smartbiz/smartbiz/internal/api"
	"github.com/smartbiz/smartbiz/internal/assistant"
	"github.com/smartbiz/smartbiz/internal/auth"
	"github.com/smartbiz/smartbiz/internal/config"
	"github.com/smartbiz/smartbiz/internal/docstore"
	s3store "github.com/smartbiz/smartbiz/internal/docstore/s3"
	"github.com/smartbiz/smartbiz/internal/export"
	"github.com/smartbiz/smartbiz/internal/invoice"
	"github.com/smartbiz/smartbiz/internal/nlquery"
	"github.com/smartbiz/smartbiz/internal/observability"
	"github.com/smartbiz/smartbiz/internal/speech"
	storepostgres "github.com/smartbiz/smartbiz/internal/store/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("smartbiz-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := storepostgres.Open(context.Background(), storepostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	repo := storepostgres.NewRepository(db)

	var docs docstore.Store
	if cfg.ObjectStore.Enabled {
		docs, err = s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize document store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	queryService := nlquery.NewService(nlquery.Config{
		BridgeURL:     cfg.NLQuery.BridgeURL,
		BridgeAPIKey:  cfg.NLQuery.BridgeAPIKey,
		DirectBaseURL: cfg.NLQuery.DirectBaseURL,
		DirectAPIKey:  cfg.NLQuery.DirectAPIKey,
		SchemaContext: cfg.NLQuery.SchemaContext,
		Timeout:       cfg.NLQuery.Timeout,
	}, logger)
	logger.Info("query provider selected", slog.String("provider", queryService.ProviderName()))

	assistantService := assistant.NewService(assistant.Config{
		BaseURL:     cfg.Assistant.BaseURL,
		APIKey:      cfg.Assistant.APIKey,
		Model:       cfg.Assistant.Model,
		MaxTokens:   cfg.Assistant.MaxTokens,
		Temperature: cfg.Assistant.Temperature,
		Timeout:     cfg.Assistant.Timeout,
	}, logger)

	speechService := speech.NewService(speech.Config{
		BaseURL:        cfg.Speech.BaseURL,
		APIKey:         cfg.Speech.APIKey,
		DefaultVoiceID: cfg.Speech.DefaultVoiceID,
		Timeout:        cfg.Speech.Timeout,
	}, logger)

	invoiceService := invoice.NewService(repo, docs, logger)
	exportService := export.NewService(repo, docs, logger)

	deps := api.Dependencies{
		Logger:    logger,
		Query:     queryService,
		Assistant: assistantService,
		Speech:    speechService,
		Invoices:  invoiceService,
		Exports:   exportService,
		Chat:      repo,
		Readiness: api.CombineReadinessChecks(
			repo.HealthCheck,
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
