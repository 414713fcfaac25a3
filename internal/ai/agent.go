package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxResultRows caps rows passed back to the LLM.
const maxResultRows = 200

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	// ClickHouse connection settings.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Pool scopes every question and ledger query; defaults to the main pool.
	Pool string

	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent answers questions about one pool from its ClickHouse event ledger:
// free-form ones through an LLM that writes the SQL, common ones through
// fixed queries.
type Agent struct {
	llm      llms.Model
	db       *sql.DB
	database string
	table    string
	pool     string
	logger   *logrus.Logger
}

// NewAgent creates a new Agent with its own ClickHouse and LLM clients.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = constants.ClickHouseDatabase
	}
	if cfg.Pool == "" {
		cfg.Pool = constants.DefaultPoolID
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1-mini"
	}

	// OpenRouter speaks the OpenAI API.
	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"pool":     cfg.Pool,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	return newAgent(llm, db, cfg.ClickHouseDatabase, cfg.Pool, cfg.Logger), nil
}

func newAgent(llm llms.Model, db *sql.DB, database, pool string, logger *logrus.Logger) *Agent {
	return &Agent{
		llm:      llm,
		db:       db,
		database: database,
		table:    constants.ClickHouseEventsTable,
		pool:     pool,
		logger:   logger,
	}
}

// Pool returns the pool the agent answers for.
func (a *Agent) Pool() string {
	return a.pool
}

// Close closes underlying resources.
func (a *Agent) Close() error {
	if a.db != nil {
		a.logger.Debug("closing AI agent ClickHouse connection")
		return a.db.Close()
	}
	return nil
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	SQL    string
	Answer string
	Kinds  []models.EventKind // event kinds the question was read as being about
	Rows   int
}

// Ask turns a question into SQL over the pool's events, runs it and has the
// LLM explain the rows.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	kinds := kindsIn(question)

	sqlQuery, err := a.generateSQL(ctx, question, kinds)
	if err != nil {
		return nil, err
	}
	rows, err := a.query(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	answer, err := a.complete(ctx, a.answerPrompt(question, sqlQuery, string(rowsJSON), kinds))
	if err != nil {
		return nil, fmt.Errorf("LLM summarisation failed: %w", err)
	}

	return &AskResult{SQL: sqlQuery, Answer: answer, Kinds: kinds, Rows: len(rows)}, nil
}

// RunSQL runs a hand-written query under the same read-only policy as the
// generated ones.
func (a *Agent) RunSQL(ctx context.Context, sqlQuery string) ([]map[string]any, error) {
	sqlQuery = sanitizeSQL(sqlQuery)
	if err := validateSQL(sqlQuery, a.database, a.table); err != nil {
		return nil, err
	}
	return a.query(ctx, ensureLimit(sqlQuery, maxResultRows))
}

func (a *Agent) generateSQL(ctx context.Context, question string, kinds []models.EventKind) (string, error) {
	resp, err := a.complete(ctx, a.sqlPrompt(question, kinds))
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlQuery := sanitizeSQL(resp)
	if err := validateSQL(sqlQuery, a.database, a.table); err != nil {
		a.logger.WithError(err).WithField("reply", resp).Warn("rejected generated SQL")
		return "", err
	}
	sqlQuery = ensureLimit(sqlQuery, maxResultRows)

	a.logger.WithFields(logrus.Fields{"sql": sqlQuery, "kinds": kinds}).Debug("generated SQL from question")
	return sqlQuery, nil
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(512))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// query returns at most maxResultRows rows keyed by column name.
func (a *Agent) query(ctx context.Context, sqlQuery string) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for len(out) < maxResultRows && rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = jsonValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// jsonValue keeps UInt256 columns exact and timestamps readable.
func jsonValue(v any) any {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case big.Int:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	default:
		return v
	}
}
