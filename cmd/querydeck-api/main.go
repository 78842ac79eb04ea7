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

	"github.com/querydeck/querydeck/internal/api"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/nlgen"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/vault"
)

func main() {
	cfg, err := config.LoadFromEnv("querydeck-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	if cfg.Vault.MasterSecret == "" {
		logger.Error("QUERYDECK_VAULT_MASTER_SECRET is required")
		os.Exit(1)
	}
	credentialVault, err := vault.New(cfg.Vault.MasterSecret)
	if err != nil {
		logger.Error("failed to initialize credential vault", slog.Any("error", err))
		os.Exit(1)
	}

	introspector := &schema.Introspector{
		Vault:   credentialVault,
		Logger:  observability.WithComponent(logger, "introspector"),
		Timeout: cfg.Introspect.Timeout,
	}
	exec := &executor.Executor{
		Vault:  credentialVault,
		Logger: observability.WithComponent(logger, "executor"),
	}
	generator := &nlgen.Engine{
		Introspector: introspector,
		Logger:       observability.WithComponent(logger, "nlgen"),
		Providers: map[nlgen.ProviderChoice]nlgen.ProviderSettings{
			nlgen.ProviderOpenAI: {
				BaseURL:     cfg.AI.OpenAIBaseURL,
				Model:       cfg.AI.OpenAIModel,
				Temperature: cfg.AI.Temperature,
				Timeout:     cfg.AI.Timeout,
			},
			nlgen.ProviderAnthropic: {
				BaseURL: cfg.AI.AnthropicBaseURL,
				Model:   cfg.AI.AnthropicModel,
				Timeout: cfg.AI.Timeout,
			},
		},
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:       logger,
		Executor:     exec,
		Introspector: introspector,
		Generator:    generator,
		ExecutorCfg:  cfg.Executor,
	})

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
