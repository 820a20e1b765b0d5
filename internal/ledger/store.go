// Package ledger is the system of record: users with their cash balance,
// the stocks dictionary and the append-only transaction history.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"tradesim/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested user or stock does not exist.
var ErrNotFound = errors.New("ledger: not found")

// NormalizeSymbol returns the canonical form of a ticker symbol: trimmed
// and upper-cased. All lookups and stored symbols use this form.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Store wraps a gorm connection with the ledger contract. All methods are
// safe to call on a Store obtained from WithTx, in which case they run
// inside that transaction.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn inside a single database transaction. If fn returns an
// error the transaction is rolled back and the error is returned unchanged.
func (s *Store) WithTx(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// CreateUser inserts a new user row. The caller sets the starting cash.
func (s *Store) CreateUser(u *domain.User) error {
	return s.db.Create(u).Error
}

// UserByUsername fetches a user by its unique username.
func (s *Store) UserByUsername(username string) (*domain.User, error) {
	var u domain.User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserCash returns the user's current cash balance, or ErrNotFound if
// the user does not exist.
func (s *Store) GetUserCash(userID uint) (decimal.Decimal, error) {
	var u domain.User
	if err := s.db.Select("cash").Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, err
	}
	return u.Cash, nil
}

// SetUserCash overwrites the user's cash balance. The caller must have
// computed the new value from a read made in the same logical operation,
// inside WithTx.
func (s *Store) SetUserCash(userID uint, balance decimal.Decimal) error {
	return s.db.Model(&domain.User{}).Where("id = ?", userID).Update("cash", balance).Error
}

// StockBySymbol fetches a stock by symbol (case-insensitive). Returns
// ErrNotFound if no trade has ever referenced the symbol.
func (s *Store) StockBySymbol(symbol string) (*domain.Stock, error) {
	var stock domain.Stock
	if err := s.db.Where("symbol = ?", NormalizeSymbol(symbol)).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindOrCreateStock returns the stock for symbol, inserting it with the
// given display name on first use. Idempotent: an existing row wins and
// its name is kept. Concurrent first trades on the same new symbol race
// on the unique symbol index; the loser re-reads the winner's row.
func (s *Store) FindOrCreateStock(symbol, name string) (*domain.Stock, error) {
	sym := NormalizeSymbol(symbol)
	var stock domain.Stock
	err := s.db.Where("symbol = ?", sym).First(&stock).Error
	if err == nil {
		return &stock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	stock = domain.Stock{Symbol: sym, Name: name}
	if createErr := s.db.Create(&stock).Error; createErr != nil {
		// Unique-constraint violation from losing the insert race.
		if retryErr := s.db.Where("symbol = ?", sym).First(&stock).Error; retryErr == nil {
			return &stock, nil
		}
		return nil, fmt.Errorf("create stock %s: %w", sym, createErr)
	}
	return &stock, nil
}

// AppendTransaction inserts one immutable history row. A zero CreatedAt
// is stamped with the current time.
func (s *Store) AppendTransaction(t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return s.db.Create(t).Error
}

// QueryNetPosition returns bought minus sold quantity for (user, stock).
// No history rows means a net position of zero.
func (s *Store) QueryNetPosition(userID, stockID uint) (int64, error) {
	var net int64
	err := s.db.Model(&domain.Transaction{}).
		Select("COALESCE(SUM(CASE WHEN side = ? THEN quantity ELSE -quantity END), 0)", domain.SideBuy).
		Where("user_id = ? AND stock_id = ?", userID, stockID).
		Scan(&net).Error
	if err != nil {
		return 0, err
	}
	return net, nil
}

// ListOwnedStocks returns the distinct stocks the user has ever transacted,
// ordered by symbol. Fully exited positions are included; callers that want
// current holdings filter on net position.
func (s *Store) ListOwnedStocks(userID uint) ([]domain.Stock, error) {
	var stocks []domain.Stock
	err := s.db.Model(&domain.Stock{}).
		Distinct("stocks.*").
		Joins("JOIN transactions ON transactions.stock_id = stocks.id").
		Where("transactions.user_id = ?", userID).
		Order("stocks.symbol").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// TransactionRecord is a history row joined with its stock for display.
type TransactionRecord struct {
	domain.Transaction
	Symbol string
	Name   string
}

// CountTransactions returns the total number of history rows for the user.
func (s *Store) CountTransactions(userID uint) (int64, error) {
	var total int64
	err := s.db.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// ListTransactions returns the user's history rows newest first, joined
// with the stock symbol and name. limit <= 0 means no limit.
func (s *Store) ListTransactions(userID uint, offset, limit int) ([]TransactionRecord, error) {
	q := s.db.Model(&domain.Transaction{}).
		Select("transactions.*, stocks.symbol, stocks.name").
		Joins("JOIN stocks ON stocks.id = transactions.stock_id").
		Where("transactions.user_id = ?", userID).
		Order("transactions.created_at DESC, transactions.id DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []TransactionRecord
	if err := q.Scan(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
