package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/ai"
	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/engine"
	"github.com/aman-zulfiqar/constant-product-amm/internal/flags"
	"github.com/aman-zulfiqar/constant-product-amm/internal/storage"
	"github.com/aman-zulfiqar/constant-product-amm/internal/wallet"
	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the base58 ed25519 signature of the raw request
// body, made with the key of the account named in the body.
const SignatureHeader = "X-Signature"

const (
	modeExactIn  = "exact_in"
	modeExactOut = "exact_out"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine            *engine.Engine          // Pool engine serving reads and mutations
	Events            storage.EventSubscriber // Live event feed for websocket clients (optional)
	Flags             *flags.Store            // Redis-backed operation pause switches (optional)
	AI                *ai.Agent               // AI agent for natural language queries (optional)
	AIBaseConfig      ai.AgentConfig          // Base configuration for AI agents
	DevMode           bool                    // Enable detailed error responses and dev-only endpoints
	RequireSignatures bool                    // Require X-Signature on mutating requests
	Logger            *logrus.Logger          // Structured logger
}

// requestError is a client mistake detected before reaching the engine.
type requestError struct {
	code    int
	msg     string
	details any
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string, details any) error {
	return &requestError{code: http.StatusBadRequest, msg: msg, details: details}
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail renders a request, engine or pool error.
func (h *Handlers) fail(c echo.Context, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return h.err(c, re.code, re.msg, re.details)
	}

	code, kind := statusFor(err)
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		resp := ErrorResponse{Error: http.StatusText(code), Code: code}
		if h.DevMode {
			resp.Details = map[string]any{"err": err.Error()}
		}
		return c.JSON(code, resp)
	}
	return c.JSON(code, ErrorResponse{Error: err.Error(), Code: code, Kind: kind})
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// decode reads the JSON body into req and resolves the acting account,
// checking the body signature when signatures are required.
func (h *Handlers) decode(c echo.Context, req any, account func() string) (amm.AccountID, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return "", badRequest("failed to read body", nil)
	}
	if err := json.Unmarshal(body, req); err != nil {
		return "", badRequest("invalid json", map[string]any{"err": err.Error()})
	}

	raw := account()
	acct, err := wallet.ParseAccount(raw)
	if err != nil {
		return "", badRequest("invalid account", map[string]any{"account": "must be a base58 ed25519 public key"})
	}

	if h.RequireSignatures {
		sig := c.Request().Header.Get(SignatureHeader)
		if sig == "" {
			return "", &requestError{code: http.StatusUnauthorized, msg: "missing signature"}
		}
		if err := wallet.Verify(string(acct), body, sig); err != nil {
			return "", &requestError{code: http.StatusUnauthorized, msg: "invalid signature"}
		}
	}
	return acct, nil
}

func parseAmount(field, s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, badRequest("missing "+field, map[string]any{field: "required"})
	}
	v, err := amm.ParseAmount(s)
	if errors.Is(err, amm.ErrAmountOverflow) {
		return nil, badRequest("invalid "+field, map[string]any{field: fmt.Sprintf("must fit in %d bits", amm.AmountBits)})
	}
	if err != nil {
		return nil, badRequest("invalid "+field, map[string]any{field: "must be a base-10 unsigned integer"})
	}
	return v, nil
}

func parseMode(s string) (exactOut bool, err error) {
	switch strings.TrimSpace(s) {
	case "", modeExactIn:
		return false, nil
	case modeExactOut:
		return true, nil
	default:
		return false, badRequest("invalid mode", map[string]any{"mode": "exact_in or exact_out"})
	}
}

func parseDirection(s string) (amm.Direction, error) {
	dir, err := amm.ParseDirection(strings.TrimSpace(s))
	if err != nil {
		return 0, badRequest("invalid direction", map[string]any{"direction": "1to2 or 2to1"})
	}
	return dir, nil
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Ready checks the state store and ledger
func (h *Handlers) Ready(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Engine.Ping(ctx); err != nil {
		return h.err(c, http.StatusServiceUnavailable, "not ready", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Pool returns reserves, total shares and fee of the served pool
func (h *Handlers) Pool(c echo.Context) error {
	p, version := h.Engine.Snapshot()
	s := p.Summary()
	return c.JSON(http.StatusOK, PoolResponse{
		Pool:        h.Engine.PoolID(),
		Version:     version,
		FeeBps:      s.FeeBps,
		Active:      p.Active(),
		Reserve1:    s.Reserve1.Dec(),
		Reserve2:    s.Reserve2.Dec(),
		TotalShares: s.TotalShares.Dec(),
	})
}

// Portfolio returns an account's free balances and shares
func (h *Handlers) Portfolio(c echo.Context) error {
	acct, err := wallet.ParseAccount(c.Param("account"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid account", map[string]any{"account": "must be a base58 ed25519 public key"})
	}
	pf := h.Engine.Portfolio(acct)
	return c.JSON(http.StatusOK, PortfolioResponse{
		Account: string(acct),
		Token1:  pf.Token1.Dec(),
		Token2:  pf.Token2.Dec(),
		Shares:  pf.Shares.Dec(),
	})
}

// NewAccount generates a keypair for trying the API (dev mode only)
func (h *Handlers) NewAccount(c echo.Context) error {
	w, err := wallet.New()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, AccountResponse{Account: w.Address(), PrivateKey: w.PrivateKeyBase58()})
}

// Faucet credits free balances to an account
func (h *Handlers) Faucet(c echo.Context) error {
	var req FundRequest
	acct, err := h.decode(c, &req, func() string { return req.Account })
	if err != nil {
		return h.fail(c, err)
	}
	a1, err := parseAmount("amount1", req.Amount1)
	if err != nil {
		return h.fail(c, err)
	}
	a2, err := parseAmount("amount2", req.Amount2)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.MutationTimeout)
	defer cancel()

	ev, err := h.Engine.Fund(ctx, acct, a1, a2)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// ProvideLiquidity deposits free balances into the pool
func (h *Handlers) ProvideLiquidity(c echo.Context) error {
	var req LiquidityRequest
	acct, err := h.decode(c, &req, func() string { return req.Account })
	if err != nil {
		return h.fail(c, err)
	}
	a1, err := parseAmount("amount1", req.Amount1)
	if err != nil {
		return h.fail(c, err)
	}
	a2, err := parseAmount("amount2", req.Amount2)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.MutationTimeout)
	defer cancel()

	shares, ev, err := h.Engine.ProvideLiquidity(ctx, acct, a1, a2)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, LiquidityResponse{Shares: shares.Dec(), Event: ev})
}

// Withdraw burns shares and credits the released reserves
func (h *Handlers) Withdraw(c echo.Context) error {
	var req WithdrawRequest
	acct, err := h.decode(c, &req, func() string { return req.Account })
	if err != nil {
		return h.fail(c, err)
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.MutationTimeout)
	defer cancel()

	a1, a2, ev, err := h.Engine.Withdraw(ctx, acct, shares)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, WithdrawResponse{Amount1: a1.Dec(), Amount2: a2.Dec(), Event: ev})
}

// Swap executes an exact-in or exact-out swap
func (h *Handlers) Swap(c echo.Context) error {
	var req SwapRequest
	acct, err := h.decode(c, &req, func() string { return req.Account })
	if err != nil {
		return h.fail(c, err)
	}
	dir, err := parseDirection(req.Direction)
	if err != nil {
		return h.fail(c, err)
	}
	exactOut, err := parseMode(req.Mode)
	if err != nil {
		return h.fail(c, err)
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	var limit *uint256.Int
	if strings.TrimSpace(req.Limit) != "" {
		if limit, err = parseAmount("limit", req.Limit); err != nil {
			return h.fail(c, err)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.MutationTimeout)
	defer cancel()

	res, ev, err := h.Engine.Swap(ctx, engine.SwapRequest{
		Account:     acct,
		Direction:   dir,
		ExactOut:    exactOut,
		Amount:      amount,
		Limit:       limit,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, SwapResponse{
		Direction: res.Direction.String(),
		AmountIn:  res.AmountIn.Dec(),
		AmountOut: res.AmountOut.Dec(),
		Event:     ev,
	})
}

// Quote estimates a swap against the current reserves
// Query: direction (1to2|2to1), amount, mode (exact_in|exact_out)
func (h *Handlers) Quote(c echo.Context) error {
	dir, err := parseDirection(c.QueryParam("direction"))
	if err != nil {
		return h.fail(c, err)
	}
	exactOut, err := parseMode(c.QueryParam("mode"))
	if err != nil {
		return h.fail(c, err)
	}
	amount, err := parseAmount("amount", c.QueryParam("amount"))
	if err != nil {
		return h.fail(c, err)
	}

	p, version := h.Engine.Snapshot()
	resp := QuoteResponse{Direction: dir.String(), Mode: modeExactIn, Version: version}
	if exactOut {
		in, err := p.EstimateSwapExactOut(dir, amount)
		if err != nil {
			return h.fail(c, err)
		}
		resp.Mode, resp.AmountIn, resp.AmountOut = modeExactOut, in.Dec(), amount.Dec()
	} else {
		out, err := p.EstimateSwap(dir, amount)
		if err != nil {
			return h.fail(c, err)
		}
		resp.AmountIn, resp.AmountOut = amount.Dec(), out.Dec()
	}
	return c.JSON(http.StatusOK, resp)
}

// QuoteWithdraw estimates the tokens released by burning shares
func (h *Handlers) QuoteWithdraw(c echo.Context) error {
	shares, err := parseAmount("shares", c.QueryParam("shares"))
	if err != nil {
		return h.fail(c, err)
	}
	a1, a2, err := h.Engine.Pool().EstimateWithdraw(shares)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, WithdrawQuoteResponse{Shares: shares.Dec(), Amount1: a1.Dec(), Amount2: a2.Dec()})
}

// QuoteDeposit returns the ratio-matched counterpart for a deposit
// Query: exactly one of amount1 or amount2
func (h *Handlers) QuoteDeposit(c echo.Context) error {
	s1, s2 := c.QueryParam("amount1"), c.QueryParam("amount2")
	if (s1 == "") == (s2 == "") {
		return h.err(c, http.StatusBadRequest, "set exactly one of amount1 or amount2", nil)
	}

	p := h.Engine.Pool()
	if s1 != "" {
		a1, err := parseAmount("amount1", s1)
		if err != nil {
			return h.fail(c, err)
		}
		a2, err := p.EquivalentToken2For(a1)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(http.StatusOK, EquivalentResponse{Amount1: a1.Dec(), Amount2: a2.Dec()})
	}

	a2, err := parseAmount("amount2", s2)
	if err != nil {
		return h.fail(c, err)
	}
	a1, err := p.EquivalentToken1For(a2)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, EquivalentResponse{Amount1: a1.Dec(), Amount2: a2.Dec()})
}

// RecentEvents returns the most recent pool events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentEvents(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := constants.MaxRecentEvents
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentEventsPage {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Engine.RecentEvents(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get events", nil)
	}
	return c.JSON(http.StatusOK, EventsResponse{Items: items})
}

// FlagsList returns the pause state of every operation
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, FlagsResponse{Items: items})
}

// FlagsUpdate pauses or resumes an operation
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	op := c.Param("op")
	if err := flags.ValidateOp(op); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid operation", map[string]any{"op": flags.Operations})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Set(ctx, op, req.Paused, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.Logger.WithFields(logrus.Fields{"op": op, "paused": out.Paused, "reason": out.Reason}).Info("operation flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsDelete resumes an operation by removing its flag
// Returns 204 No Content on success
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	op := c.Param("op")
	if err := flags.ValidateOp(op); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid operation", map[string]any{"op": flags.Operations})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Clear(ctx, op); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about pool activity using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.AIRequestTimeout)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
		agent = tmp
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{
		SQL:    res.SQL,
		Answer: res.Answer,
		Kinds:  res.Kinds,
		Rows:   res.Rows,
		TookMs: time.Since(start).Milliseconds(),
	})
}

// AISummary reports the pool as recorded by the event ledger: the newest
// snapshot and activity over ?window= (default 24h)
func (h *Handlers) AISummary(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}
	window := 24 * time.Hour
	if s := strings.TrimSpace(c.QueryParam("window")); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return h.err(c, http.StatusBadRequest, "invalid window", map[string]any{"window": "must be a positive duration like 1h"})
		}
		window = d
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), constants.AIRequestTimeout)
	defer cancel()

	snap, err := h.AI.LatestSnapshot(ctx)
	if errors.Is(err, ai.ErrNoEvents) {
		return h.err(c, http.StatusNotFound, "no events recorded for the pool", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read ledger", map[string]any{"err": err.Error()})
	}
	activity, err := h.AI.Activity(ctx, window)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read ledger", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AISummaryResponse{
		Snapshot: snap,
		Price:    snap.Price(),
		Window:   window.String(),
		Activity: activity,
	})
}
