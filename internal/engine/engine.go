package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/flags"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/aman-zulfiqar/constant-product-amm/internal/storage"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPaused is returned when the operation is switched off by a flag
	ErrPaused = errors.New("operation paused")

	// ErrInvalidRequest wraps request validation failures that are not pool errors
	ErrInvalidRequest = errors.New("invalid request")
)

// PauseChecker reports whether an operation is switched off. *flags.Store
// implements it.
type PauseChecker interface {
	Paused(ctx context.Context, op string) (bool, error)
}

// EngineConfig holds configuration for the pool engine
type EngineConfig struct {
	PoolID string
	FeeBps uint64 // Used only when no state is stored yet

	// Sink delivery
	SinkTimeout time.Duration

	// SaveTimeout bounds a state save. A save that has started is not
	// cancelled with the request.
	SaveTimeout time.Duration

	// Risk management
	RiskConfig RiskConfig
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PoolID:      constants.DefaultPoolID,
		FeeBps:      3,
		SinkTimeout: constants.SinkTimeout,
		SaveTimeout: constants.SaveTimeout,
		RiskConfig:  DefaultRiskConfig(),
	}
}

// EngineDeps wires the engine to its store and event sinks. Only Store is
// required.
type EngineDeps struct {
	Store     storage.StateStore
	Recent    storage.EventCache
	Publisher storage.EventPublisher
	Ledger    storage.EventStore
	Flags     PauseChecker
	Metrics   *Metrics
	Logger    *logrus.Logger
	Clock     func() time.Time
}

type sink struct {
	name    string
	deliver func(context.Context, *models.PoolEvent) error
}

// Engine serves one pool. Every mutation runs on a clone of the served pool,
// is persisted, and only then replaces it, so a failed save leaves the served
// state untouched.
type Engine struct {
	cfg     EngineConfig
	store   storage.StateStore
	recent  storage.EventCache
	ledger  storage.EventStore
	flags   PauseChecker
	sinks   []sink
	metrics *Metrics
	logger  *logrus.Logger
	now     func() time.Time

	// writeMu serializes mutations; mu only guards the served pointer so
	// reads never wait on a save.
	writeMu sync.Mutex
	mu      sync.RWMutex
	pool    *amm.Pool
	version uint64
}

// NewEngine hydrates the pool from deps.Store, or starts an empty pool with
// cfg.FeeBps when nothing is stored.
func NewEngine(ctx context.Context, cfg EngineConfig, deps EngineDeps) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if err := cfg.RiskConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}
	if cfg.PoolID == "" {
		cfg.PoolID = constants.DefaultPoolID
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = constants.SinkTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = constants.SaveTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		deps.Metrics = m
	}

	e := &Engine{
		cfg:     cfg,
		store:   deps.Store,
		recent:  deps.Recent,
		ledger:  deps.Ledger,
		flags:   deps.Flags,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Clock,
	}
	if deps.Recent != nil {
		e.sinks = append(e.sinks, sink{"recent", deps.Recent.AddRecentEvent})
	}
	if deps.Publisher != nil {
		e.sinks = append(e.sinks, sink{"pubsub", deps.Publisher.PublishEvent})
	}
	if deps.Ledger != nil {
		e.sinks = append(e.sinks, sink{"ledger", deps.Ledger.InsertEvent})
	}

	st, version, err := deps.Store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrStateNotFound):
		e.pool = amm.New(cfg.FeeBps)
		e.logger.WithFields(logrus.Fields{
			"pool":    cfg.PoolID,
			"fee_bps": e.pool.FeeBps(),
		}).Info("no stored state, starting empty pool")
	case err != nil:
		return nil, fmt.Errorf("load state: %w", err)
	default:
		p, err := amm.Restore(st)
		if err != nil {
			return nil, fmt.Errorf("restore state: %w", err)
		}
		if p.FeeBps() != cfg.FeeBps {
			e.logger.WithFields(logrus.Fields{
				"stored":     p.FeeBps(),
				"configured": cfg.FeeBps,
			}).Warn("stored fee differs from configuration, keeping stored fee")
		}
		e.pool, e.version = p, version
		e.logger.WithFields(logrus.Fields{
			"pool":    cfg.PoolID,
			"version": version,
		}).Info("restored pool state")
	}

	e.metrics.setPool(e.pool.Summary())
	return e, nil
}

// Pool returns the served pool for reads and estimates. A served pool is
// never mutated, so the pointer stays consistent after later mutations.
func (e *Engine) Pool() *amm.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool
}

// Version is the state version of the served pool.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Snapshot returns the served pool together with its version.
func (e *Engine) Snapshot() (*amm.Pool, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool, e.version
}

func (e *Engine) PoolID() string {
	return e.cfg.PoolID
}

func (e *Engine) Risk() RiskConfig {
	return e.cfg.RiskConfig
}

func (e *Engine) Summary() amm.Summary {
	return e.Pool().Summary()
}

func (e *Engine) Portfolio(account amm.AccountID) amm.Portfolio {
	return e.Pool().Portfolio(account)
}

// Fund credits free balances to account.
func (e *Engine) Fund(ctx context.Context, account amm.AccountID, amount1, amount2 *uint256.Int) (*models.PoolEvent, error) {
	ev := &models.PoolEvent{
		Kind:    models.EventFund,
		Account: string(account),
		Amount1: decimal(amount1),
		Amount2: decimal(amount2),
	}
	err := e.mutate(ctx, flags.OpFaucet, ev, func(p *amm.Pool) error {
		return p.Fund(account, amount1, amount2)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ProvideLiquidity deposits into the pool and returns the shares issued.
func (e *Engine) ProvideLiquidity(ctx context.Context, account amm.AccountID, amount1, amount2 *uint256.Int) (*uint256.Int, *models.PoolEvent, error) {
	ev := &models.PoolEvent{
		Kind:    models.EventProvide,
		Account: string(account),
		Amount1: decimal(amount1),
		Amount2: decimal(amount2),
	}
	var issued *uint256.Int
	err := e.mutate(ctx, flags.OpLiquidity, ev, func(p *amm.Pool) error {
		s, err := p.ProvideLiquidity(account, amount1, amount2)
		if err != nil {
			return err
		}
		issued = s
		ev.Shares = s.Dec()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return issued, ev, nil
}

// Withdraw burns shares and returns the released token amounts.
func (e *Engine) Withdraw(ctx context.Context, account amm.AccountID, shares *uint256.Int) (amount1, amount2 *uint256.Int, ev *models.PoolEvent, err error) {
	if shares == nil {
		return nil, nil, nil, fmt.Errorf("%w: shares are required", ErrInvalidRequest)
	}
	ev = &models.PoolEvent{
		Kind:    models.EventWithdraw,
		Account: string(account),
		Shares:  shares.Dec(),
	}
	err = e.mutate(ctx, flags.OpWithdraw, ev, func(p *amm.Pool) error {
		a1, a2, err := p.Withdraw(account, shares)
		if err != nil {
			return err
		}
		amount1, amount2 = a1, a2
		ev.Amount1, ev.Amount2 = a1.Dec(), a2.Dec()
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amount1, amount2, ev, nil
}

// SwapRequest describes a swap. Amount is the input for exact-in swaps and
// the output for exact-out swaps. Limit is the minimum output (exact-in) or
// maximum input (exact-out); when nil it is derived from SlippageBps or the
// configured default slippage.
type SwapRequest struct {
	Account     amm.AccountID
	Direction   amm.Direction
	ExactOut    bool
	Amount      *uint256.Int
	Limit       *uint256.Int
	SlippageBps *uint16
}

// Swap executes a swap in either mode.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (amm.SwapResult, *models.PoolEvent, error) {
	if req.Amount == nil {
		return amm.SwapResult{}, nil, fmt.Errorf("%w: amount is required", ErrInvalidRequest)
	}
	if req.Limit != nil && req.SlippageBps != nil {
		return amm.SwapResult{}, nil, fmt.Errorf("%w: set either a limit or a slippage, not both", ErrInvalidRequest)
	}
	slippage, err := e.cfg.RiskConfig.resolveSlippage(req.SlippageBps)
	if err != nil {
		return amm.SwapResult{}, nil, err
	}

	ev := &models.PoolEvent{
		Kind:      models.EventSwap,
		Account:   string(req.Account),
		Direction: req.Direction.String(),
	}
	if req.ExactOut {
		ev.Kind = models.EventSwapExact
	}

	var res amm.SwapResult
	err = e.mutate(ctx, flags.OpSwap, ev, func(p *amm.Pool) error {
		var err error
		limit := req.Limit
		if req.ExactOut {
			if limit == nil {
				quote, err := p.EstimateSwapExactOut(req.Direction, req.Amount)
				if err != nil {
					return err
				}
				limit = ApplySlippageCeiling(quote, slippage)
			}
			res, err = p.SwapExactOut(req.Account, req.Direction, req.Amount, limit)
		} else {
			if limit == nil {
				quote, err := p.EstimateSwap(req.Direction, req.Amount)
				if err != nil {
					return err
				}
				limit = ApplySlippage(quote, slippage)
			}
			res, err = p.Swap(req.Account, req.Direction, req.Amount, limit)
		}
		if err != nil {
			return err
		}

		if req.Direction == amm.Token1ToToken2 {
			ev.Amount1, ev.Amount2 = res.AmountIn.Dec(), res.AmountOut.Dec()
		} else {
			ev.Amount1, ev.Amount2 = res.AmountOut.Dec(), res.AmountIn.Dec()
		}
		return nil
	})
	if err != nil {
		return amm.SwapResult{}, nil, err
	}
	return res, ev, nil
}

// RecentEvents returns the latest events, newest first. Without a recent
// events cache it returns an empty list.
func (e *Engine) RecentEvents(ctx context.Context, limit int64) ([]*models.PoolEvent, error) {
	if e.recent == nil {
		return []*models.PoolEvent{}, nil
	}
	return e.recent.GetRecentEvents(ctx, limit)
}

// Ping checks the state store and, when configured, the ledger.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	if e.ledger != nil {
		if err := e.ledger.Ping(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
	}
	return nil
}

// mutate applies fn to a clone of the served pool, persists it and swaps it
// in. ev is completed with the shared fields and emitted to every sink.
func (e *Engine) mutate(ctx context.Context, op string, ev *models.PoolEvent, fn func(*amm.Pool) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.observe(op, start, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		e.metrics.observe(op, start, err)
	}()

	if err := e.checkPaused(ctx, op); err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	next := e.Pool().Clone()
	if err := fn(next); err != nil {
		return err
	}

	// past this point the request deadline no longer applies, so a save the
	// store commits is never reported to the caller as failed
	if err := ctx.Err(); err != nil {
		return err
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SaveTimeout)
	defer cancel()
	version, err := e.store.Save(saveCtx, next.Export())
	if err != nil {
		e.logger.WithError(err).WithField("op", op).Error("failed to persist pool state")
		return fmt.Errorf("save state: %w", err)
	}
	e.mu.Lock()
	e.pool, e.version = next, version
	e.mu.Unlock()

	s := next.Summary()
	ev.ID = uuid.NewString()
	ev.Pool = e.cfg.PoolID
	ev.Version = version
	ev.Timestamp = e.now().UTC()
	ev.Reserve1 = s.Reserve1.Dec()
	ev.Reserve2 = s.Reserve2.Dec()
	ev.TotalShares = s.TotalShares.Dec()

	e.metrics.setPool(s)
	e.emit(ctx, ev)
	return nil
}

func (e *Engine) checkPaused(ctx context.Context, op string) error {
	if e.flags == nil {
		return nil
	}
	paused, err := e.flags.Paused(ctx, op)
	if err != nil {
		return fmt.Errorf("check %s flag: %w", op, err)
	}
	if paused {
		return fmt.Errorf("%w: %s", ErrPaused, op)
	}
	return nil
}

// emit delivers ev to every sink. Failures are logged and counted; the
// mutation is already committed.
func (e *Engine) emit(ctx context.Context, ev *models.PoolEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SinkTimeout)
	defer cancel()

	for _, s := range e.sinks {
		if err := s.deliver(ctx, ev); err != nil {
			e.metrics.sinkFailed(s.name)
			e.logger.WithError(err).WithFields(logrus.Fields{
				"sink":    s.name,
				"event":   ev.ID,
				"kind":    ev.Kind,
				"version": ev.Version,
			}).Warn("failed to deliver pool event")
		}
	}
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error

	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("state store close: %w", err))
	}

	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}

	return nil
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
