package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Transaction Model. Append-only history row recording a single executed
// trade at the price fetched at execution time. Rows are never updated or
// deleted; holdings are always derived from them.
type Transaction struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    uint            `gorm:"index;not null"`
	StockID   uint            `gorm:"index;not null"`
	Side      string          `gorm:"size:4;not null"` // BUY or SELL
	Price     decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Quantity  int64           `gorm:"not null"` // always positive; side carries the sign
	CreatedAt time.Time       `gorm:"index"`
}
