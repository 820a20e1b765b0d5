// Package position derives current holdings from the transaction history.
// The engine keeps no state of its own; every answer is a pure function of
// the ledger contents at read time.
package position

import (
	"context"
	"tradesim/internal/domain"
	"tradesim/internal/ledger"
	"tradesim/internal/quote"

	"github.com/shopspring/decimal"
)

// Holding is a stock the user currently owns and its net share count.
type Holding struct {
	Stock     domain.Stock
	NetShares int64
}

// ValuedHolding is a Holding priced with a live quote. PriceUnavailable is
// set when the quote lookup failed; Price and Value are zero in that case.
// History is never hidden by a quote outage, only its valuation.
type ValuedHolding struct {
	Holding
	Price            decimal.Decimal
	Value            decimal.Decimal
	PriceUnavailable bool
}

// Engine computes positions over a ledger store.
type Engine struct {
	store *ledger.Store
}

// NewEngine returns an Engine reading from store.
func NewEngine(store *ledger.Store) *Engine {
	return &Engine{store: store}
}

// Portfolio returns the user's current holdings: every stock ever
// transacted whose net position is non-zero. Fully exited positions are
// omitted from the view, not deleted from history.
func (e *Engine) Portfolio(userID uint) ([]Holding, error) {
	stocks, err := e.store.ListOwnedStocks(userID)
	if err != nil {
		return nil, err
	}
	holdings := make([]Holding, 0, len(stocks))
	for _, stock := range stocks {
		net, err := e.store.QueryNetPosition(userID, stock.ID)
		if err != nil {
			return nil, err
		}
		if net == 0 {
			continue
		}
		holdings = append(holdings, Holding{Stock: stock, NetShares: net})
	}
	return holdings, nil
}

// Valuation prices the user's holdings with live quotes and returns them
// together with the total value of the rows that could be priced. A failed
// lookup marks its row PriceUnavailable instead of failing the whole view.
func (e *Engine) Valuation(ctx context.Context, userID uint, quotes quote.Gateway) ([]ValuedHolding, decimal.Decimal, error) {
	holdings, err := e.Portfolio(userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	valued := make([]ValuedHolding, 0, len(holdings))
	total := decimal.Zero
	for _, h := range holdings {
		q, err := quotes.Lookup(ctx, h.Stock.Symbol)
		if err != nil {
			valued = append(valued, ValuedHolding{Holding: h, PriceUnavailable: true})
			continue
		}
		value := q.Price.Mul(decimal.NewFromInt(h.NetShares))
		valued = append(valued, ValuedHolding{Holding: h, Price: q.Price, Value: value})
		total = total.Add(value)
	}
	return valued, total, nil
}
