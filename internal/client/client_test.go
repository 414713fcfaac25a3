package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aman-zulfiqar/constant-product-amm/internal/engine"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/aman-zulfiqar/constant-product-amm/internal/server"
	"github.com/aman-zulfiqar/constant-product-amm/internal/storage"
	"github.com/aman-zulfiqar/constant-product-amm/internal/wallet"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "client-test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := storage.NewMemoryStore(20)
	eng, err := engine.NewEngine(context.Background(), engine.DefaultEngineConfig(), engine.EngineDeps{
		Store:     store,
		Recent:    store,
		Publisher: store,
		Logger:    logger,
	})
	require.NoError(t, err)

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Engine:            eng,
			Events:            store,
			RequireSignatures: true,
			Logger:            logger,
		},
		Config: server.ServerConfig{Addr: ":0", APIKey: testKey},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newSignedClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)
	c := NewClient(baseURL+"/", testKey)
	c.Wallet = w
	return c
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("  ", "")
	assert.Equal(t, "http://localhost:8090", c.BaseURL)
	assert.Empty(t, c.Account())

	c = NewClient("http://pool.local:9000///", " key ")
	assert.Equal(t, "http://pool.local:9000", c.BaseURL)
	assert.Equal(t, "key", c.APIKey)
}

func TestClientLifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := newSignedClient(t, ts.URL)
	ctx := context.Background()
	me := c.Account()

	ev, err := c.Faucet(ctx, server.FundRequest{Account: me, Amount1: "10000", Amount2: "10000"})
	require.NoError(t, err)
	assert.Equal(t, models.EventFund, ev.Kind)

	liq, err := c.ProvideLiquidity(ctx, server.LiquidityRequest{Account: me, Amount1: "1000", Amount2: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "1000000", liq.Shares)

	pool, err := c.Pool(ctx)
	require.NoError(t, err)
	assert.True(t, pool.Active)
	assert.Equal(t, "1000", pool.Reserve1)

	q, err := c.Quote(ctx, "1to2", "", "100")
	require.NoError(t, err)
	assert.Equal(t, "91", q.AmountOut)

	swap, err := c.Swap(ctx, server.SwapRequest{Account: me, Direction: "1to2", Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, "90", swap.AmountOut)

	dep, err := c.QuoteDeposit(ctx, "110", "")
	require.NoError(t, err)
	assert.Equal(t, "91", dep.Amount2)

	wq, err := c.QuoteWithdraw(ctx, "500000")
	require.NoError(t, err)
	assert.Equal(t, "550", wq.Amount1)

	wd, err := c.Withdraw(ctx, server.WithdrawRequest{Account: me, Shares: "500000"})
	require.NoError(t, err)
	assert.Equal(t, wq.Amount1, wd.Amount1)
	assert.Equal(t, wq.Amount2, wd.Amount2)

	port, err := c.Portfolio(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, "500000", port.Shares)

	events, err := c.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events.Items, 4)
	assert.Equal(t, models.EventWithdraw, events.Items[0].Kind)
}

func TestClientErrors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := newSignedClient(t, ts.URL)
	_, err := c.Swap(ctx, server.SwapRequest{Account: c.Account(), Direction: "1to2", Amount: "100"})
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusConflict, httpErr.StatusCode)
	require.NotNil(t, httpErr.Resp)
	assert.Equal(t, "ZeroLiquidity", httpErr.Resp.Kind)
	assert.Contains(t, httpErr.Error(), "ZeroLiquidity")

	// unsigned mutation
	c.Wallet = nil
	_, err = c.Faucet(ctx, server.FundRequest{Account: newSignedClient(t, ts.URL).Account(), Amount1: "1", Amount2: "1"})
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	// wrong API key
	bad := NewClient(ts.URL, "nope")
	_, err = bad.Pool(ctx)
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	_, err = c.Portfolio(ctx, "")
	assert.Error(t, err)
}
