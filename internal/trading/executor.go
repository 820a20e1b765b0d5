// Package trading validates and atomically applies buy and sell orders.
// The executor is the only component that mutates the ledger.
package trading

import (
	"context"
	"errors"
	"sync"
	"time"
	"tradesim/internal/domain"
	"tradesim/internal/ledger"
	"tradesim/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Executor applies trades against the ledger. Trades for the same user are
// serialized with a per-user mutex around the read-validate-write sequence,
// so two concurrent orders can never both pass validation against a stale
// balance or position. Trades for different users run in parallel.
//
// The quote is always fetched before the critical section: the price is
// live at execution time, and a slow upstream never blocks other trades
// for the same user longer than necessary.
type Executor struct {
	store  *ledger.Store
	quotes quote.Gateway
	locks  sync.Map // userID -> *sync.Mutex
}

// NewExecutor returns an Executor over store and quotes.
func NewExecutor(store *ledger.Store, quotes quote.Gateway) *Executor {
	return &Executor{store: store, quotes: quotes}
}

func (e *Executor) userLock(userID uint) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// fetchQuote resolves a symbol through the gateway, translating its
// failure modes into the trade taxonomy.
func (e *Executor) fetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	q, err := e.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, quote.ErrUnknownSymbol) {
			return quote.Quote{}, ErrUnknownSymbol
		}
		return quote.Quote{}, ErrQuoteUnavailable
	}
	return q, nil
}

// Buy purchases shares of symbol at the current quoted price, appending a
// BUY history row and debiting the user's cash in one transaction. The
// stock row is created on the first trade referencing the symbol.
func (e *Executor) Buy(ctx context.Context, userID uint, symbol string, shares int64) error {
	if shares < 1 {
		return ErrInvalidQuantity
	}
	sym := ledger.NormalizeSymbol(symbol)
	if sym == "" {
		return ErrUnknownSymbol
	}

	q, err := e.fetchQuote(ctx, sym)
	if err != nil {
		return err
	}
	cost := q.Price.Mul(decimal.NewFromInt(shares))

	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	err = e.store.WithTx(func(tx *ledger.Store) error {
		cash, err := tx.GetUserCash(userID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(cash) {
			return ErrInsufficientFunds
		}
		stock, err := tx.FindOrCreateStock(sym, q.Name)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(&domain.Transaction{
			UserID:   userID,
			StockID:  stock.ID,
			Side:     domain.SideBuy,
			Price:    q.Price,
			Quantity: shares,
		}); err != nil {
			return err
		}
		return tx.SetUserCash(userID, cash.Sub(cost))
	})
	if err != nil {
		e.logTrade(userID, sym, domain.SideBuy, q.Price, shares, err)
		return err
	}
	e.logTrade(userID, sym, domain.SideBuy, q.Price, shares, nil)
	return nil
}

// Sell disposes of shares of symbol at the current quoted price, appending
// a SELL history row and crediting the user's cash in one transaction.
// Unlike Buy it never creates a stock row: selling a symbol the user has
// no history for is an unknown-symbol rejection.
func (e *Executor) Sell(ctx context.Context, userID uint, symbol string, shares int64) error {
	if shares < 1 {
		return ErrInvalidQuantity
	}
	sym := ledger.NormalizeSymbol(symbol)
	if sym == "" {
		return ErrUnknownSymbol
	}

	stock, err := e.store.StockBySymbol(sym)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrUnknownSymbol
		}
		return err
	}

	q, err := e.fetchQuote(ctx, sym)
	if err != nil {
		return err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(shares))

	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	err = e.store.WithTx(func(tx *ledger.Store) error {
		net, err := tx.QueryNetPosition(userID, stock.ID)
		if err != nil {
			return err
		}
		if shares > net {
			return ErrInsufficientShares
		}
		cash, err := tx.GetUserCash(userID)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(&domain.Transaction{
			UserID:   userID,
			StockID:  stock.ID,
			Side:     domain.SideSell,
			Price:    q.Price,
			Quantity: shares,
		}); err != nil {
			return err
		}
		return tx.SetUserCash(userID, cash.Add(proceeds))
	})
	if err != nil {
		e.logTrade(userID, sym, domain.SideSell, q.Price, shares, err)
		return err
	}
	e.logTrade(userID, sym, domain.SideSell, q.Price, shares, nil)
	return nil
}

func (e *Executor) logTrade(userID uint, symbol, side string, price decimal.Decimal, shares int64, err error) {
	fields := logrus.Fields{
		"user_id":   userID,
		"symbol":    symbol,
		"side":      side,
		"price":     price.String(),
		"quantity":  shares,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("Trade rejected")
		return
	}
	logrus.WithFields(fields).Info("Trade executed")
}
