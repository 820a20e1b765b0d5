package ledger

import (
	"fmt"
	"strings"
	"testing"
	"tradesim/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Stock{}, &domain.Transaction{}))
	return NewStore(db)
}

func newTestUser(t *testing.T, s *Store, name string, cash int64) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Password: "x", Cash: decimal.NewFromInt(cash)}
	require.NoError(t, s.CreateUser(u))
	return u
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("aapl"))
	assert.Equal(t, "AAPL", NormalizeSymbol("  AaPl "))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestGetUserCash(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 10000)

	cash, err := s.GetUserCash(u.ID)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.NewFromInt(10000)))

	_, err = s.GetUserCash(u.ID + 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetUserCash(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 100)

	require.NoError(t, s.SetUserCash(u.ID, decimal.RequireFromString("42.50")))
	cash, err := s.GetUserCash(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "42.5", cash.String())
}

func TestFindOrCreateStockIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.FindOrCreateStock("aapl", "Apple Inc")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)

	// Same symbol, different case and name: existing row wins.
	second, err := s.FindOrCreateStock("AAPL", "Some Other Name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Apple Inc", second.Name)

	stocks := []domain.Stock{}
	require.NoError(t, s.db.Find(&stocks).Error)
	assert.Len(t, stocks, 1)
}

func TestStockBySymbol(t *testing.T) {
	s := newTestStore(t)

	_, err := s.StockBySymbol("NFLX")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := s.FindOrCreateStock("NFLX", "Netflix Inc")
	require.NoError(t, err)

	found, err := s.StockBySymbol("nflx")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestQueryNetPosition(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 10000)
	stock, err := s.FindOrCreateStock("AAPL", "Apple Inc")
	require.NoError(t, err)

	// No history rows at all is a net position of zero, not an error.
	net, err := s.QueryNetPosition(u.ID, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), net)

	price := decimal.RequireFromString("150.00")
	for _, tx := range []domain.Transaction{
		{UserID: u.ID, StockID: stock.ID, Side: domain.SideBuy, Price: price, Quantity: 10},
		{UserID: u.ID, StockID: stock.ID, Side: domain.SideBuy, Price: price, Quantity: 5},
		{UserID: u.ID, StockID: stock.ID, Side: domain.SideSell, Price: price, Quantity: 7},
	} {
		tx := tx
		require.NoError(t, s.AppendTransaction(&tx))
	}

	net, err = s.QueryNetPosition(u.ID, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), net)
}

func TestListOwnedStocks(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 10000)
	aapl, _ := s.FindOrCreateStock("AAPL", "Apple Inc")
	msft, _ := s.FindOrCreateStock("MSFT", "Microsoft Corp")
	price := decimal.NewFromInt(100)

	// Two trades on AAPL must still yield one distinct entry.
	for _, stockID := range []uint{aapl.ID, aapl.ID, msft.ID} {
		require.NoError(t, s.AppendTransaction(&domain.Transaction{
			UserID: u.ID, StockID: stockID, Side: domain.SideBuy, Price: price, Quantity: 1,
		}))
	}

	stocks, err := s.ListOwnedStocks(u.ID)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
	assert.Equal(t, "MSFT", stocks[1].Symbol)

	other := newTestUser(t, s, "bob", 100)
	stocks, err = s.ListOwnedStocks(other.ID + 1)
	require.NoError(t, err)
	assert.Empty(t, stocks)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 10000)
	stock, _ := s.FindOrCreateStock("AAPL", "Apple Inc")

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AppendTransaction(&domain.Transaction{
			UserID: u.ID, StockID: stock.ID, Side: domain.SideBuy,
			Price: decimal.NewFromInt(int64(i)), Quantity: int64(i),
		}))
	}

	recs, err := s.ListTransactions(u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(3), recs[0].Quantity)
	assert.Equal(t, int64(1), recs[2].Quantity)
	assert.Equal(t, "AAPL", recs[0].Symbol)
	assert.Equal(t, "Apple Inc", recs[0].Name)

	total, err := s.CountTransactions(u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// Pagination slices the same ordering.
	page, err := s.ListTransactions(u.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].Quantity)
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "alice", 1000)
	stock, _ := s.FindOrCreateStock("AAPL", "Apple Inc")

	boom := fmt.Errorf("boom")
	err := s.WithTx(func(tx *Store) error {
		if err := tx.AppendTransaction(&domain.Transaction{
			UserID: u.ID, StockID: stock.ID, Side: domain.SideBuy,
			Price: decimal.NewFromInt(10), Quantity: 1,
		}); err != nil {
			return err
		}
		if err := tx.SetUserCash(u.ID, decimal.NewFromInt(990)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Neither the history row nor the balance change survived.
	total, err := s.CountTransactions(u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	cash, err := s.GetUserCash(u.ID)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.NewFromInt(1000)))
}
