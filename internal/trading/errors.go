package trading

import "errors"

// Trade rejections. Every rejection names the precondition that failed and
// leaves the ledger untouched.
var (
	ErrInvalidQuantity    = errors.New("trading: invalid quantity")
	ErrUnknownSymbol      = errors.New("trading: unknown symbol")
	ErrInsufficientFunds  = errors.New("trading: insufficient funds")
	ErrInsufficientShares = errors.New("trading: insufficient shares")
	ErrQuoteUnavailable   = errors.New("trading: quote unavailable")
)
