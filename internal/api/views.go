package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"tradesim/internal/ledger"
	"tradesim/internal/position"
	"tradesim/internal/quote"
	"tradesim/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const viewCacheTTL = 60 * time.Second

// PortfolioRow is one priced holding in the portfolio view.
type PortfolioRow struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	NetShares        int64           `json:"net_shares"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	TotalValue       decimal.Decimal `json:"total_value"`
	PriceUnavailable bool            `json:"price_unavailable,omitempty"`
}

// PortfolioResponse is the full portfolio view.
type PortfolioResponse struct {
	Holdings    []PortfolioRow  `json:"holdings"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	TotalValue  decimal.Decimal `json:"total_value"` // cash plus priced holdings
}

// PortfolioHandler returns the authenticated user's holdings priced with
// live quotes. Rows whose quote lookup failed are marked rather than
// failing the whole view.
func PortfolioHandler(store *ledger.Store, engine *position.Engine, quotes quote.Gateway, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		ctx := c.Request.Context()
		cacheKey := "portfolio:user:" + strconv.Itoa(int(uid))
		if rdb != nil {
			var cached PortfolioResponse
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		cash, err := store.GetUserCash(uid)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio"})
			return
		}
		valued, holdingsTotal, err := engine.Valuation(ctx, uid, quotes)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio"})
			return
		}

		rows := make([]PortfolioRow, 0, len(valued))
		for _, v := range valued {
			rows = append(rows, PortfolioRow{
				Symbol:           v.Stock.Symbol,
				Name:             v.Stock.Name,
				NetShares:        v.NetShares,
				CurrentPrice:     v.Price,
				TotalValue:       v.Value,
				PriceUnavailable: v.PriceUnavailable,
			})
		}
		resp := PortfolioResponse{
			Holdings:    rows,
			CashBalance: cash,
			TotalValue:  cash.Add(holdingsTotal),
		}
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, viewCacheTTL)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HistoryRow is one transaction in the history view.
type HistoryRow struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Side             string          `json:"side"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int64           `json:"quantity"`
	TransactionValue decimal.Decimal `json:"transaction_value"`
	Timestamp        time.Time       `json:"timestamp"`
}

// HistoryResponse is a page of the transaction history, newest first.
type HistoryResponse struct {
	Transactions []HistoryRow `json:"transactions"`
	Page         int          `json:"page"`
	PageSize     int          `json:"page_size"`
	Total        int64        `json:"total"`
	TotalPages   int          `json:"total_pages"`
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// HistoryHandler returns the authenticated user's transaction history.
func HistoryHandler(store *ledger.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		page, pageSize := pageParams(c)
		ctx := context.Background()
		cacheKey := "history:user:" + strconv.Itoa(int(uid)) +
			":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		if rdb != nil {
			var cached HistoryResponse
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		total, err := store.CountTransactions(uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		recs, err := store.ListTransactions(uid, (page-1)*pageSize, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		rows := make([]HistoryRow, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, HistoryRow{
				Symbol:           r.Symbol,
				Name:             r.Name,
				Side:             r.Side,
				Price:            r.Price,
				Quantity:         r.Quantity,
				TransactionValue: r.Price.Mul(decimal.NewFromInt(r.Quantity)),
				Timestamp:        r.CreatedAt.UTC(),
			})
		}
		resp := HistoryResponse{
			Transactions: rows,
			Page:         page,
			PageSize:     pageSize,
			Total:        total,
			TotalPages:   (int(total) + pageSize - 1) / pageSize,
		}
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, viewCacheTTL)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CashHandler returns the authenticated user's cash balance.
func CashHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		cash, err := store.GetUserCash(userID.(uint))
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cash": cash})
	}
}

// QuoteHandler looks up the current quote for a symbol.
func QuoteHandler(quotes quote.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := quotes.Lookup(c.Request.Context(), c.Param("symbol"))
		if err != nil {
			if errors.Is(err, quote.ErrUnknownSymbol) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Unknown symbol"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Quote service unavailable"})
			return
		}
		c.JSON(http.StatusOK, q)
	}
}
