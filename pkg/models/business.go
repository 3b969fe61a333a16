package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business is the financing counterpart profile. It is referenced by
// invoices and read by the scoring and risk rules; the decision pipeline
// never mutates it.
type Business struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"userId" gorm:"index"`
	Name   string `json:"name"`

	AnnualRevenue    decimal.Decimal `json:"annualRevenue" gorm:"type:numeric"`
	YearsInOperation int             `json:"yearsInOperation"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
