package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Prometheus scrape endpoint, outside API key auth
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := e.Group("/v1")

	// Optional API key authentication
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	v1.GET("/health", h.Health)                // Health check endpoint
	v1.GET("/ready", h.Ready)                  // Store and ledger connectivity
	v1.GET("/pool", h.Pool)                    // Reserves, total shares and fee
	v1.GET("/accounts/:account", h.Portfolio)  // Account balances and shares
	v1.GET("/quote", h.Quote)                  // Swap estimate
	v1.GET("/quote/withdraw", h.QuoteWithdraw) // Withdraw estimate
	v1.GET("/quote/deposit", h.QuoteDeposit)   // Ratio-matched deposit amounts
	v1.GET("/events/recent", h.RecentEvents)   // Recent pool events
	v1.GET("/events/ws", h.EventsWS)           // Live pool events over websocket
	if cfg.DevMode {
		v1.POST("/accounts", h.NewAccount) // Generate a throwaway keypair
	}

	// Mutating endpoints with optional rate limiting
	mut := v1.Group("")
	if cfg.MutationRate > 0 {
		mut.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.MutationRate),
			Burst:     cfg.MutationBurst,
			ExpiresIn: 2 * time.Minute,
		})))
	}
	mut.POST("/faucet", h.Faucet)              // Credit free balances
	mut.POST("/liquidity", h.ProvideLiquidity) // Deposit into the pool
	mut.POST("/withdraw", h.Withdraw)          // Burn shares
	mut.POST("/swap", h.Swap)                  // Exact-in or exact-out swap

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,               // Allow burst of 2 requests
		ExpiresIn: 2 * time.Minute, // Rate limit window
	})))
	aigroup.POST("/ask", h.AIAsk)        // Natural language to SQL endpoint
	aigroup.GET("/summary", h.AISummary) // Latest ledger snapshot and activity

	// Operation pause switches
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)          // Pause state of every operation
	flagGroup.PUT("/:op", h.FlagsUpdate)    // Pause or resume an operation
	flagGroup.DELETE("/:op", h.FlagsDelete) // Resume an operation

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
