package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User Model. Cash is the user's spendable balance; it is only ever
// changed by the trade executor, together with exactly one history row.
type User struct {
	ID        uint            `gorm:"primaryKey"`
	Username  string          `gorm:"uniqueIndex;size:64;not null"`
	Password  string          `gorm:"not null"` // bcrypt hash
	Cash      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt time.Time
}
