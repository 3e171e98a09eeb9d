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

	"github.com/sheetql/sheetql/internal/api"
	"github.com/sheetql/sheetql/internal/auth"
	"github.com/sheetql/sheetql/internal/catalog"
	catalogpostgres "github.com/sheetql/sheetql/internal/catalog/postgres"
	"github.com/sheetql/sheetql/internal/config"
	"github.com/sheetql/sheetql/internal/nl2sql"
	"github.com/sheetql/sheetql/internal/observability"
	"github.com/sheetql/sheetql/internal/storage"
	s3store "github.com/sheetql/sheetql/internal/storage/s3"
	"github.com/sheetql/sheetql/internal/workspace"
)

func main() {
	cfg, err := config.LoadFromEnv("sheetql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ws, err := workspace.New(cfg.Workspace.Dir, cfg.Workspace.MaxUploadBytes)
	if err != nil {
		logger.Error("failed to prepare workspace", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder catalog.Recorder
	if cfg.Catalog.DSN != "" {
		catalogDB, err := catalogpostgres.Open(context.Background(), catalogpostgres.DBConfig{
			DSN:             cfg.Catalog.DSN,
			MaxOpenConns:    cfg.Catalog.MaxOpenConns,
			MaxIdleConns:    cfg.Catalog.MaxIdleConns,
			ConnMaxIdleTime: cfg.Catalog.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Catalog.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open catalog db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = catalogDB.Close() }()

		repo := catalogpostgres.NewRepository(catalogDB)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to prepare catalog schema", slog.Any("error", err))
			os.Exit(1)
		}
		recorder = repo
	}

	var archiver *storage.Archiver
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = &storage.Archiver{Store: objectStore, Logger: logger}
	}

	var model nl2sql.Client
	if cfg.AI.Enabled {
		model, err = nl2sql.NewOpenAIClient(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize generative-model client", slog.Any("error", err))
			os.Exit(1)
		}
	}

	sweeper := &workspace.Sweeper{
		Workspace: ws,
		MaxAge:    cfg.Workspace.RetentionAge,
		Logger:    logger,
	}

	deps := api.Dependencies{
		Logger:    logger,
		Workspace: ws,
		Catalog:   recorder,
		Archiver:  archiver,
		Sweeper:   sweeper,
		Model:     model,
		Readiness: api.CombineReadinessChecks(
			api.CheckWorkspace(ws),
			api.CheckCatalog(recorder),
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

	if cfg.Workspace.RetentionAge > 0 {
		go func() {
			if err := sweeper.Run(ctx); err != nil {
				logger.Error("retention sweeper stopped", slog.Any("error", err))
			}
		}()
	}

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
