package cache

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig holds the ledger connection settings
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore is the append-only pool event ledger.
type ClickHouseStore struct {
	conn     driver.Conn
	database string
	logger   *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = constants.ClickHouseDatabase
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	// connect to the default database so EnsureSchema can create cfg.Database;
	// every statement qualifies its table
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, database: cfg.Database, logger: logger}, nil
}

// EnsureSchema creates the events table when it is missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.database)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id           String,
			pool         LowCardinality(String),
			version      UInt64,
			kind         LowCardinality(String),
			account      String,
			timestamp    DateTime64(3, 'UTC'),
			direction    LowCardinality(String),
			amount1      UInt256,
			amount2      UInt256,
			shares       UInt256,
			reserve1     UInt256,
			reserve2     UInt256,
			total_shares UInt256
		) ENGINE = MergeTree
		ORDER BY (pool, version)
	`, c.database, constants.ClickHouseEventsTable)

	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertEvent(ctx context.Context, event *models.PoolEvent) error {
	amounts := make([]*big.Int, 0, 6)
	for _, s := range []string{
		event.Amount1, event.Amount2, event.Shares,
		event.Reserve1, event.Reserve2, event.TotalShares,
	} {
		v, err := decimalToBig(s)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
		}
		amounts = append(amounts, v)
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", c.database, constants.ClickHouseEventsTable))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	err = batch.Append(
		event.ID,
		event.Pool,
		event.Version,
		string(event.Kind),
		event.Account,
		event.Timestamp,
		event.Direction,
		amounts[0], amounts[1], amounts[2],
		amounts[3], amounts[4], amounts[5],
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

func decimalToBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v.ToBig(), nil
}
