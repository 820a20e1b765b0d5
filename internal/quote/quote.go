// Package quote talks to the external price-lookup service.
package quote

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Lookup failure modes. Callers must be able to tell an unknown symbol
// apart from the service being unreachable.
var (
	ErrUnknownSymbol = errors.New("quote: unknown symbol")
	ErrUnavailable   = errors.New("quote: service unavailable")
)

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Gateway resolves a symbol to its current quote. Implementations must be
// case-insensitive on symbol.
type Gateway interface {
	Lookup(ctx context.Context, symbol string) (Quote, error)
}
