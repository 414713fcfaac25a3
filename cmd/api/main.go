package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/constant-product-amm/internal/ai"
	"github.com/aman-zulfiqar/constant-product-amm/internal/cache"
	"github.com/aman-zulfiqar/constant-product-amm/internal/config"
	"github.com/aman-zulfiqar/constant-product-amm/internal/engine"
	"github.com/aman-zulfiqar/constant-product-amm/internal/flags"
	"github.com/aman-zulfiqar/constant-product-amm/internal/server"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the pool API server
// It wires the engine to Redis, the optional ClickHouse ledger and the HTTP server
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Redis holds the pool snapshot, recent events, pause flags and the live feed
	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	store, err := cache.NewRedisStore(rclient, cfg.PoolID, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create state store")
	}
	store.WithMaxRecent(cfg.MaxRecentEvents)

	pubsub := cache.NewPubSubManager(rclient, logger)

	flagStore, err := flags.NewStore(rclient, cfg.PoolID)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	// Optional ClickHouse event ledger
	deps := engine.EngineDeps{
		Store:     store,
		Recent:    store,
		Publisher: pubsub,
		Flags:     flagStore,
		Logger:    logger,
	}
	if cfg.ClickHouseEnabled {
		ledger, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		if err := ledger.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("failed to create ledger schema")
		}
		deps.Ledger = ledger
	}

	// Prometheus registry with process and runtime collectors
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := engine.NewMetrics(reg)
	if err != nil {
		logger.WithError(err).Fatal("failed to register metrics")
	}
	deps.Metrics = metrics

	ecfg := engine.DefaultEngineConfig()
	ecfg.PoolID = cfg.PoolID
	ecfg.FeeBps = cfg.FeeBps
	ecfg.SinkTimeout = cfg.SinkTimeout
	ecfg.SaveTimeout = cfg.SaveTimeout
	ecfg.RiskConfig = engine.RiskConfig{
		DefaultSlippageBps: cfg.DefaultSlippageBps,
		MaxSlippageBps:     cfg.MaxSlippageBps,
	}

	eng, err := engine.NewEngine(ctx, ecfg, deps)
	if err != nil {
		logger.WithError(err).Fatal("failed to start pool engine")
	}

	// Initialize AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		Pool:               cfg.PoolID,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}

	// Only initialize AI if OpenRouter API key is provided
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close() // Clean up AI resources on shutdown
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:            eng,                   // Pool engine
		Events:            pubsub,                // Live feed for websocket clients
		Flags:             flagStore,             // Redis-backed pause switches
		AI:                agent,                 // Optional AI agent (can be nil)
		AIBaseConfig:      aiBase,                // Base AI configuration for model overrides
		DevMode:           cfg.DevMode,           // Enable detailed error responses in development
		RequireSignatures: cfg.RequireSignatures, // Require signed mutating requests
		Logger:            logger,                // Structured logger
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:          cfg.APIAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			MutationRate:  cfg.MutationRate,
			MutationBurst: cfg.MutationBurst,
			Gatherer:      reg,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"pool":    eng.PoolID(),
		"version": eng.Version(),
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
	if err := eng.Close(); err != nil {
		logger.WithError(err).Warn("failed to close engine")
	}
}
