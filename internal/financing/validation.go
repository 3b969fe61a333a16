package financing

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

const (
	msgAmountNotPositive  = "Invoice amount must be greater than zero"
	msgDueBeforeIssue     = "Due date must be after issue date"
	msgAlreadyOverdue     = "Invoice is already overdue"
	msgAmountMismatch     = "Subtotal + Tax does not match Total Amount"
	msgExceedsRevenueCap  = "Invoice amount exceeds 30% of annual revenue"
	msgExceedsPlatformCap = "Invoice amount exceeds platform limit"
	msgMissingBuyerTaxID  = "Buyer GSTIN is required for financing"
)

var (
	// platformInvoiceCeiling is the fixed maximum invoice amount the
	// platform accepts for financing.
	platformInvoiceCeiling = decimal.NewFromInt(5_000_000)

	// revenueExposureCap rejects invoices above this fraction of the
	// business's annual revenue.
	revenueExposureCap = decimal.NewFromFloat(0.30)

	// amountTolerance is the permitted mismatch between subtotal+tax and
	// the total, in currency units.
	amountTolerance = decimal.NewFromInt(1)
)

// ValidationResult collects every failing rule message; the invoice is
// valid only when no message was recorded.
type ValidationResult struct {
	IsValid bool
	Errors  models.NoteList
}

// ValidationEngine runs structural and business-rule checks on a
// submitted invoice. All checks run unconditionally so the submitter
// sees every problem at once.
type ValidationEngine struct {
	now func() time.Time
	log zerolog.Logger
}

// NewValidationEngine creates a validation engine using the wall clock.
func NewValidationEngine() *ValidationEngine {
	return &ValidationEngine{
		now: time.Now,
		log: logger.WithComponent("validation"),
	}
}

// Validate checks the invoice against the business profile and the
// platform rules. The overdue check compares the due date against today
// at midnight, so an invoice due today still passes.
func (v *ValidationEngine) Validate(inv *models.Invoice, biz *models.Business) ValidationResult {
	var errs models.NoteList

	if !inv.TotalAmount.GreaterThan(decimal.Zero) {
		errs = append(errs, msgAmountNotPositive)
	}

	if !inv.DueDate.After(inv.IssueDate) {
		errs = append(errs, msgDueBeforeIssue)
	}

	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if inv.DueDate.Before(today) {
		errs = append(errs, msgAlreadyOverdue)
	}

	if !inv.Subtotal.IsZero() || !inv.TaxAmount.IsZero() {
		diff := inv.Subtotal.Add(inv.TaxAmount).Sub(inv.TotalAmount).Abs()
		if diff.GreaterThan(amountTolerance) {
			errs = append(errs, msgAmountMismatch)
		}
	}

	if inv.TotalAmount.GreaterThan(biz.AnnualRevenue.Mul(revenueExposureCap)) {
		errs = append(errs, msgExceedsRevenueCap)
	}

	if inv.TotalAmount.GreaterThan(platformInvoiceCeiling) {
		errs = append(errs, msgExceedsPlatformCap)
	}

	if strings.TrimSpace(inv.BuyerTaxID) == "" {
		errs = append(errs, msgMissingBuyerTaxID)
	}

	result := ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}

	v.log.Debug().
		Str("invoice_id", inv.ID).
		Bool("is_valid", result.IsValid).
		Strs("errors", result.Errors).
		Msg("Validation completed")

	return result
}
