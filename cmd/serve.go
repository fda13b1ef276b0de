package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutoken/docs-assistant/internal/api"
	"github.com/rutoken/docs-assistant/internal/assistant"
	"github.com/rutoken/docs-assistant/internal/config"
	"github.com/rutoken/docs-assistant/internal/feedback"
	"github.com/rutoken/docs-assistant/internal/log"
	"github.com/rutoken/docs-assistant/internal/openai"
	"github.com/rutoken/docs-assistant/internal/qdrant"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute // SSE answers can stream for minutes
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(cfg.Addr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	logger.Info("starting assistant server", "version", AppVersion, "config", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	openaiClient := openai.New(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		ChatModel:  cfg.ChatModel,
		EmbedModel: cfg.EmbedModel,
		Timeout:    time.Duration(cfg.OpenAITimeoutS) * time.Second,
	})

	qdrantClient := qdrant.New(qdrant.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.Collection,
		Timeout:    time.Duration(cfg.QdrantTimeoutS) * time.Second,
	}, logger)

	// Feedback goes to Postgres when a database is configured, otherwise to
	// process memory. Everything else works identically either way.
	var store feedback.Store = feedback.NewMemoryStore()
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		store, err = feedback.NewPostgresStore(ctx, pool)
		if err != nil {
			return fmt.Errorf("initializing feedback store: %w", err)
		}
		logger.Info("feedback store: postgres")
	} else {
		logger.Info("feedback store: memory (set DATABASE_URL to persist)")
	}

	svc := assistant.New(openaiClient, qdrantClient, openaiClient, assistant.Config{
		DefaultTopK:     cfg.DefaultTopK,
		MaxSnippetChars: cfg.MaxSnippetChars,
	}, logger)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Assistant:   svc,
		Feedback:    store,
		Vector:      qdrantClient,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/assistant*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
