package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/engine"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			_ = c.JSON(he.Code, ErrorResponse{
				Error: msg,
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps an engine or pool error onto an HTTP status and the pool
// error kind, if any.
func statusFor(err error) (int, string) {
	var ammErr *amm.Error
	if errors.As(err, &ammErr) {
		switch ammErr.Kind {
		case amm.KindZeroAmount, amm.KindInvalidShare, amm.KindInvalidState:
			return http.StatusBadRequest, ammErr.Kind.String()
		case amm.KindZeroLiquidity, amm.KindInsufficientLiquidity:
			return http.StatusConflict, ammErr.Kind.String()
		default:
			// InsufficientBalance, NonEquivalentValue, ThresholdNotReached,
			// SlippageExceeded, AmountOverflow
			return http.StatusUnprocessableEntity, ammErr.Kind.String()
		}
	}

	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest, ""
	case errors.Is(err, engine.ErrPaused):
		return http.StatusServiceUnavailable, ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	default:
		return http.StatusInternalServerError, ""
	}
}
