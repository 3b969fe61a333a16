package financing

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

// defaultGracePeriod is how long past the due date a pending invoice may
// remain unpaid before it is written off as defaulted.
const defaultGracePeriod = 30 * 24 * time.Hour

// RepaymentResult describes a repayment-state transition. Changed is
// false when the operation decided not to act, in which case the caller
// must leave the invoice untouched.
type RepaymentResult struct {
	Changed       bool
	Status        models.RepaymentStatus
	RepaymentDate *time.Time
	DefaultLoss   decimal.Decimal
	Notes         models.NoteList
}

// RepaymentTracker marks financed invoices paid and detects defaults
// after the grace period. Both operations are pure and idempotent given
// identical inputs; each touches only the invoice it was handed, so a
// sweep may process invoices independently and in parallel.
type RepaymentTracker struct {
	log zerolog.Logger
}

// NewRepaymentTracker creates a repayment tracker.
func NewRepaymentTracker() *RepaymentTracker {
	return &RepaymentTracker{log: logger.WithComponent("repayment-tracker")}
}

// RecordPayment marks the invoice paid regardless of timing and notes
// whether it was on time. Callers must reject invoices whose financing
// was never approved before calling.
func (t *RepaymentTracker) RecordPayment(inv *models.Invoice, paymentDate time.Time) RepaymentResult {
	note := "Repaid late"
	if !paymentDate.After(inv.DueDate) {
		note = "Repaid on time"
	}

	t.log.Info().
		Str("invoice_id", inv.ID).
		Time("payment_date", paymentDate).
		Str("note", note).
		Msg("Payment recorded")

	return RepaymentResult{
		Changed:       true,
		Status:        models.RepaymentPaid,
		RepaymentDate: &paymentDate,
		Notes:         models.NoteList{note},
	}
}

// CheckDefault writes off a still-pending invoice once the grace period
// past the due date has elapsed. Any other state, or an invoice still
// inside the grace period, is left untouched, so the check is safe to
// run repeatedly over the same invoice.
func (t *RepaymentTracker) CheckDefault(inv *models.Invoice, now time.Time) RepaymentResult {
	if inv.RepaymentStatus != models.RepaymentPending {
		return RepaymentResult{}
	}
	if !now.After(inv.DueDate.Add(defaultGracePeriod)) {
		return RepaymentResult{}
	}

	t.log.Warn().
		Str("invoice_id", inv.ID).
		Time("due_date", inv.DueDate).
		Str("default_loss", inv.FinancedAmount.String()).
		Msg("Invoice defaulted after grace period")

	return RepaymentResult{
		Changed:     true,
		Status:      models.RepaymentDefaulted,
		DefaultLoss: inv.FinancedAmount,
		Notes:       models.NoteList{"Invoice defaulted after grace period"},
	}
}
