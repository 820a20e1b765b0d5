package position

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"tradesim/internal/domain"
	"tradesim/internal/ledger"
	"tradesim/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubGateway serves fixed prices; symbols absent from the map fail with
// ErrUnavailable.
type stubGateway struct {
	prices map[string]string
}

func (g stubGateway) Lookup(_ context.Context, symbol string) (quote.Quote, error) {
	sym := strings.ToUpper(symbol)
	p, ok := g.prices[sym]
	if !ok {
		return quote.Quote{}, quote.ErrUnavailable
	}
	return quote.Quote{Symbol: sym, Name: sym + " Inc", Price: decimal.RequireFromString(p)}, nil
}

func newTestEngine(t *testing.T) (*Engine, *ledger.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Stock{}, &domain.Transaction{}))
	store := ledger.NewStore(db)
	return NewEngine(store), store
}

func seedTrade(t *testing.T, store *ledger.Store, userID uint, symbol, side string, qty int64) {
	t.Helper()
	stock, err := store.FindOrCreateStock(symbol, symbol+" Inc")
	require.NoError(t, err)
	require.NoError(t, store.AppendTransaction(&domain.Transaction{
		UserID: userID, StockID: stock.ID, Side: side,
		Price: decimal.NewFromInt(100), Quantity: qty,
	}))
}

func TestPortfolioNetsBuysAndSells(t *testing.T) {
	engine, store := newTestEngine(t)

	seedTrade(t, store, 1, "AAPL", domain.SideBuy, 10)
	seedTrade(t, store, 1, "AAPL", domain.SideSell, 4)
	seedTrade(t, store, 1, "MSFT", domain.SideBuy, 3)

	holdings, err := engine.Portfolio(1)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Stock.Symbol)
	assert.Equal(t, int64(6), holdings[0].NetShares)
	assert.Equal(t, "MSFT", holdings[1].Stock.Symbol)
	assert.Equal(t, int64(3), holdings[1].NetShares)
}

func TestPortfolioOmitsExitedPositions(t *testing.T) {
	engine, store := newTestEngine(t)

	seedTrade(t, store, 1, "AAPL", domain.SideBuy, 10)
	seedTrade(t, store, 1, "AAPL", domain.SideSell, 10)
	seedTrade(t, store, 1, "MSFT", domain.SideBuy, 1)

	holdings, err := engine.Portfolio(1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "MSFT", holdings[0].Stock.Symbol)

	// The exited stock is still part of the transacted set; only the
	// portfolio view drops it.
	stocks, err := store.ListOwnedStocks(1)
	require.NoError(t, err)
	assert.Len(t, stocks, 2)
}

func TestPortfolioEmptyForUnknownUser(t *testing.T) {
	engine, _ := newTestEngine(t)
	holdings, err := engine.Portfolio(42)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestValuation(t *testing.T) {
	engine, store := newTestEngine(t)

	seedTrade(t, store, 1, "AAPL", domain.SideBuy, 10)
	seedTrade(t, store, 1, "MSFT", domain.SideBuy, 2)

	valued, total, err := engine.Valuation(context.Background(), 1, stubGateway{
		prices: map[string]string{"AAPL": "150.00", "MSFT": "300.00"},
	})
	require.NoError(t, err)
	require.Len(t, valued, 2)
	assert.Equal(t, "1500", valued[0].Value.String())
	assert.Equal(t, "600", valued[1].Value.String())
	assert.Equal(t, "2100", total.String())
}

func TestValuationMarksUnavailablePrices(t *testing.T) {
	engine, store := newTestEngine(t)

	seedTrade(t, store, 1, "AAPL", domain.SideBuy, 10)
	seedTrade(t, store, 1, "MSFT", domain.SideBuy, 2)

	// MSFT has no quote; its row is marked and the view still succeeds.
	valued, total, err := engine.Valuation(context.Background(), 1, stubGateway{
		prices: map[string]string{"AAPL": "150.00"},
	})
	require.NoError(t, err)
	require.Len(t, valued, 2)
	assert.False(t, valued[0].PriceUnavailable)
	assert.True(t, valued[1].PriceUnavailable)
	assert.True(t, valued[1].Value.IsZero())
	assert.Equal(t, "1500", total.String())
}
