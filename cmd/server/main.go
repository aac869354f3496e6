package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"flowstack/backend/internal/api"
	"flowstack/backend/internal/config"
	"flowstack/backend/internal/ingestion"
	"flowstack/backend/internal/logging"
	"flowstack/backend/internal/mcp"
	"flowstack/backend/internal/providers"
	"flowstack/backend/internal/repository"
	"flowstack/backend/internal/services"
	"flowstack/backend/internal/vectorstore"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "FlowStack workflow builder backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envFile)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(envFile string) error {
	ctx := context.Background()
	logger := logging.Get()

	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	logger.Info().
		Str("db_host", cfg.DB.Server).
		Str("db_name", cfg.DB.Name).
		Str("frontend_origin", cfg.Server.FrontendOrigin).
		Msg("configuration loaded")

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return err
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")
		return err
	}
	logger.Info().Msg("database ready")

	store := repository.NewPostgresStore(dbPool)

	completion := providers.NewCompletionClient(cfg.Providers.OpenAIKey, cfg.Providers.MistralKey, cfg.Providers.GeminiKey)
	embedder := providers.NewOpenAIEmbedder(cfg.Providers.OpenAIKey)
	search := providers.NewSerpAPIClient(cfg.Providers.SerpAPIKey)
	vectors := services.NewVectorIndex(vectorstore.NewStore(dbPool))

	llmService := services.NewLLMService(completion, embedder, search, vectors, logger)
	docService := services.NewDocumentService(store, embedder, vectors, ingestion.NewPDFExtractor(), logger)
	executor := services.NewExecutor(llmService)

	logger.Info().Msg("service layer initialized")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Server.FrontendOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(otelecho.Middleware("flowstack-backend"))

	apiServer := &api.Server{
		Workflows:  store,
		Documents:  store,
		ChatLogs:   store,
		DocService: docService,
		LLM:        llmService,
		Executor:   executor,
		Completion: completion,
		Providers: api.ProviderStatus{
			OpenAI:  cfg.Providers.OpenAIKey != "",
			Mistral: cfg.Providers.MistralKey != "",
			Gemini:  cfg.Providers.GeminiKey != "",
			SerpAPI: cfg.Providers.SerpAPIKey != "",
		},
		Logger: logger,
	}
	apiServer.Register(e)
	logger.Info().Msg("REST API handlers mounted")

	mcpServer := mcp.NewServer(store, store, executor, llmService, logger)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info().Msg("MCP protocol handlers mounted")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("server starting")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
			if err := server.Close(); err != nil {
				logger.Error().Err(err).Msg("server close error")
			}
		}

		logger.Info().Msg("server stopped gracefully")
	}

	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger.Debug().Msg("initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
