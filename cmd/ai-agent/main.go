package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/constant-product-amm/internal/ai"
	"github.com/aman-zulfiqar/constant-product-amm/internal/config"

	"github.com/sirupsen/logrus"
)

func main() {
	queryFlag := flag.String("q", "", "Run one question or :command and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (defaults to AI_MODEL)")
	poolFlag := flag.String("pool", "", "Pool to analyse (defaults to POOL_ID)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())
	if *modelFlag == "" {
		*modelFlag = cfg.AIModel
	}
	if *poolFlag == "" {
		*poolFlag = cfg.PoolID
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the AI agent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down AI agent...")
		cancel()
	}()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		Pool:               *poolFlag,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              *modelFlag,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	r := &repl{agent: agent, out: os.Stdout}

	if *queryFlag != "" {
		if _, err := r.handle(ctx, *queryFlag); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		return
	}

	r.run(ctx, bufio.NewScanner(os.Stdin))
}
