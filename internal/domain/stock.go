package domain

// Stock Model. One row per distinct symbol, created lazily on the first
// trade that references it and never updated afterwards. Symbol is stored
// in its canonical upper-case form.
type Stock struct {
	ID     uint   `gorm:"primaryKey"`
	Symbol string `gorm:"uniqueIndex;size:16;not null"`
	Name   string `gorm:"size:128;not null"`
}
