package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"tradesim/internal/ledger"
	"tradesim/internal/trading"
	"tradesim/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TradeRequest is the buy/sell payload. Shares must be a whole number;
// fractional values fail JSON binding before they reach the executor.
type TradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares"`
}

// tradeError maps an executor rejection to an HTTP status and a message
// naming the precondition that failed.
func tradeError(err error) (int, string) {
	switch {
	case errors.Is(err, trading.ErrInvalidQuantity):
		return http.StatusBadRequest, "Invalid number of shares"
	case errors.Is(err, trading.ErrUnknownSymbol):
		return http.StatusNotFound, "Unknown symbol"
	case errors.Is(err, trading.ErrInsufficientFunds):
		return http.StatusBadRequest, "Insufficient funds"
	case errors.Is(err, trading.ErrInsufficientShares):
		return http.StatusBadRequest, "Insufficient shares"
	case errors.Is(err, trading.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable, "Quote service unavailable"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Trade failed"
	}
}

// invalidateUserViews drops the cached portfolio and history pages for a
// user after a successful trade. Simple version: delete the first 5 pages.
func invalidateUserViews(rdb *redis.Client, userID uint) {
	if rdb == nil {
		return
	}
	ctx := context.Background()
	user := strconv.Itoa(int(userID))
	_ = utils.DeleteCache(ctx, rdb, "portfolio:user:"+user)
	for i := 1; i <= 5; i++ {
		_ = utils.DeleteCache(ctx, rdb, "history:user:"+user+":page:"+strconv.Itoa(i)+":size:20")
	}
}

// BuyHandler executes a buy order for the authenticated user.
func BuyHandler(ex *trading.Executor, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number of shares"})
			return
		}
		if err := ex.Buy(c.Request.Context(), userID.(uint), req.Symbol, req.Shares); err != nil {
			status, msg := tradeError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateUserViews(rdb, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Buy executed"})
	}
}

// SellHandler executes a sell order for the authenticated user.
func SellHandler(ex *trading.Executor, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number of shares"})
			return
		}
		if err := ex.Sell(c.Request.Context(), userID.(uint), req.Symbol, req.Shares); err != nil {
			status, msg := tradeError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		invalidateUserViews(rdb, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Sell executed"})
	}
}
