package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// API settings
	APIAddr           string
	APIKey            string
	DevMode           bool
	LogLevel          string
	RequireSignatures bool
	MutationRate      float64 // requests per second per client, 0 disables
	MutationBurst     int

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Pool settings
	PoolID          string
	FeeBps          uint64
	MaxRecentEvents int64
	SinkTimeout     time.Duration
	SaveTimeout     time.Duration

	// Slippage policy
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16

	// ClickHouse settings
	ClickHouseEnabled  bool
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// AI settings
	OpenRouterAPIKey string
	AIModel          string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr:           getEnv("API_ADDR", ":8090"),
		APIKey:            getEnv("API_KEY", ""),
		DevMode:           getBoolEnv("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RequireSignatures: getBoolEnv("REQUIRE_SIGNATURES", false),
		MutationRate:      getFloatEnv("MUTATION_RATE", 0),
		MutationBurst:     getIntEnv("MUTATION_BURST", 10),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// Pool
		PoolID:          getEnv("POOL_ID", constants.DefaultPoolID),
		FeeBps:          uint64(getIntEnv("POOL_FEE_BPS", 3)),
		MaxRecentEvents: int64(getIntEnv("MAX_RECENT_EVENTS", constants.MaxRecentEvents)),
		SinkTimeout:     getDurationEnv("SINK_TIMEOUT", constants.SinkTimeout),
		SaveTimeout:     getDurationEnv("SAVE_TIMEOUT", constants.SaveTimeout),

		// Slippage
		DefaultSlippageBps: uint16(getIntEnv("DEFAULT_SLIPPAGE_BPS", 100)),
		MaxSlippageBps:     uint16(getIntEnv("MAX_SLIPPAGE_BPS", 1000)),

		// ClickHouse
		ClickHouseEnabled:  getBoolEnv("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", constants.ClickHouseDatabase),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.APIAddr) == "" {
		errs = append(errs, errors.New("API_ADDR is required"))
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.RedisDB))
	}
	if strings.TrimSpace(c.PoolID) == "" || strings.ContainsAny(c.PoolID, ": ") {
		errs = append(errs, fmt.Errorf("POOL_ID %q must be non-empty without spaces or colons", c.PoolID))
	}
	if c.FeeBps >= 1000 {
		errs = append(errs, fmt.Errorf("POOL_FEE_BPS must be below 1000, got %d", c.FeeBps))
	}
	if c.MaxRecentEvents <= 0 {
		errs = append(errs, fmt.Errorf("MAX_RECENT_EVENTS must be > 0, got %d", c.MaxRecentEvents))
	}
	if c.SinkTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SINK_TIMEOUT must be > 0, got %s", c.SinkTimeout))
	}
	if c.SaveTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SAVE_TIMEOUT must be > 0, got %s", c.SaveTimeout))
	}
	if c.MaxSlippageBps > constants.BpsDenominator {
		errs = append(errs, fmt.Errorf("MAX_SLIPPAGE_BPS must be <= %d, got %d", constants.BpsDenominator, c.MaxSlippageBps))
	}
	if c.DefaultSlippageBps > c.MaxSlippageBps {
		errs = append(errs, fmt.Errorf("DEFAULT_SLIPPAGE_BPS %d exceeds MAX_SLIPPAGE_BPS %d", c.DefaultSlippageBps, c.MaxSlippageBps))
	}
	if c.MutationRate < 0 {
		errs = append(errs, fmt.Errorf("MUTATION_RATE must be >= 0, got %g", c.MutationRate))
	}
	if c.MutationRate > 0 && c.MutationBurst <= 0 {
		errs = append(errs, fmt.Errorf("MUTATION_BURST must be > 0 when MUTATION_RATE is set, got %d", c.MutationBurst))
	}
	if c.ClickHouseEnabled && strings.TrimSpace(c.ClickHouseAddr) == "" {
		errs = append(errs, errors.New("CLICKHOUSE_ADDR is required when CLICKHOUSE_ENABLED is set"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
