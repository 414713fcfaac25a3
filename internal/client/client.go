package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/aman-zulfiqar/constant-product-amm/internal/server"
	"github.com/aman-zulfiqar/constant-product-amm/internal/wallet"
)

// Client talks to the pool API. When Wallet is set, mutating requests are
// signed with it.
type Client struct {
	BaseURL string
	APIKey  string
	Wallet  *wallet.Wallet
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

// HTTPError is a non-2xx response. Resp carries the decoded error body when
// the server sent one.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Resp       *server.ErrorResponse
}

func (e *HTTPError) Error() string {
	if e.Resp != nil && e.Resp.Error != "" {
		if e.Resp.Kind != "" {
			return fmt.Sprintf("amm http %d: %s (%s)", e.StatusCode, e.Resp.Error, e.Resp.Kind)
		}
		return fmt.Sprintf("amm http %d: %s", e.StatusCode, e.Resp.Error)
	}
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("amm http %d", e.StatusCode)
	}
	return fmt.Sprintf("amm http %d: %s", e.StatusCode, b)
}

// Account is the signing wallet's address, or "" without a wallet.
func (c *Client) Account() string {
	if c.Wallet == nil {
		return ""
	}
	return c.Wallet.Address()
}

func (c *Client) Pool(ctx context.Context) (*server.PoolResponse, error) {
	var out server.PoolResponse
	return &out, c.get(ctx, "/v1/pool", nil, &out)
}

func (c *Client) Portfolio(ctx context.Context, account string) (*server.PortfolioResponse, error) {
	if strings.TrimSpace(account) == "" {
		return nil, fmt.Errorf("account is required")
	}
	var out server.PortfolioResponse
	return &out, c.get(ctx, "/v1/accounts/"+url.PathEscape(account), nil, &out)
}

// Quote estimates a swap. mode is "exact_in" or "exact_out".
func (c *Client) Quote(ctx context.Context, direction, mode, amount string) (*server.QuoteResponse, error) {
	q := url.Values{}
	q.Set("direction", direction)
	q.Set("amount", amount)
	if mode != "" {
		q.Set("mode", mode)
	}
	var out server.QuoteResponse
	return &out, c.get(ctx, "/v1/quote", q, &out)
}

func (c *Client) QuoteWithdraw(ctx context.Context, shares string) (*server.WithdrawQuoteResponse, error) {
	q := url.Values{}
	q.Set("shares", shares)
	var out server.WithdrawQuoteResponse
	return &out, c.get(ctx, "/v1/quote/withdraw", q, &out)
}

// QuoteDeposit returns the ratio-matched counterpart. Exactly one of amount1
// and amount2 should be set.
func (c *Client) QuoteDeposit(ctx context.Context, amount1, amount2 string) (*server.EquivalentResponse, error) {
	q := url.Values{}
	if amount1 != "" {
		q.Set("amount1", amount1)
	}
	if amount2 != "" {
		q.Set("amount2", amount2)
	}
	var out server.EquivalentResponse
	return &out, c.get(ctx, "/v1/quote/deposit", q, &out)
}

func (c *Client) RecentEvents(ctx context.Context, limit int) (*server.EventsResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out server.EventsResponse
	return &out, c.get(ctx, "/v1/events/recent", q, &out)
}

func (c *Client) Faucet(ctx context.Context, req server.FundRequest) (*models.PoolEvent, error) {
	var out models.PoolEvent
	return &out, c.post(ctx, "/v1/faucet", req, &out)
}

func (c *Client) ProvideLiquidity(ctx context.Context, req server.LiquidityRequest) (*server.LiquidityResponse, error) {
	var out server.LiquidityResponse
	return &out, c.post(ctx, "/v1/liquidity", req, &out)
}

func (c *Client) Withdraw(ctx context.Context, req server.WithdrawRequest) (*server.WithdrawResponse, error) {
	var out server.WithdrawResponse
	return &out, c.post(ctx, "/v1/withdraw", req, &out)
}

func (c *Client) Swap(ctx context.Context, req server.SwapRequest) (*server.SwapResponse, error) {
	var out server.SwapResponse
	return &out, c.post(ctx, "/v1/swap", req, &out)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(httpReq, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("content-type", "application/json")
	if c.Wallet != nil {
		sig, err := c.Wallet.Sign(payload)
		if err != nil {
			return err
		}
		httpReq.Header.Set(server.SignatureHeader, sig)
	}
	return c.do(httpReq, out)
}

func (c *Client) do(httpReq *http.Request, out any) error {
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: res.StatusCode, Body: body}
		var er server.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			httpErr.Resp = &er
		}
		return httpErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", httpReq.URL.Path, err)
	}
	return nil
}
