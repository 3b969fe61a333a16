// Package financing implements the invoice decision pipeline: a
// deterministic, short-circuiting evaluation chain that turns a raw
// invoice submission into a terminal outcome (blocked, rejected,
// approved with terms) and manages the post-approval lifecycle.
//
// Scoring is a fixed, auditable rule set, not a trained model. Every
// automated decision carries at least one human-readable note.
package financing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

const (
	// Note texts emitted by the fraud signals.
	noteDuplicateNumber = "Duplicate invoice number detected"
	noteAmountSpike     = "Abnormal invoice amount spike (>40% revenue)"
	noteUploadFrequency = "High upload frequency detected (5+ in 24h)"
	noteRepeatedClient  = "Repeated client pattern for new business"

	// uploadFrequencyLimit triggers the frequency signal when the business
	// has this many submissions inside the trailing window.
	uploadFrequencyLimit  = 5
	uploadFrequencyWindow = 24 * time.Hour

	// repeatedClientMinPrior is the prior-invoice count to the same buyer
	// that flags a business younger than a year.
	repeatedClientMinPrior = 3
)

// amountSpikeRatio flags invoices above this fraction of annual revenue.
var amountSpikeRatio = decimal.NewFromFloat(0.4)

// FraudResult is the outcome of screening one submission.
type FraudResult struct {
	Status models.FraudStatus
	Notes  models.NoteList
}

// FraudScreen detects duplicate, anomalous, or suspicious submissions by
// consulting previously stored invoices of the same business. It is
// stateless and read-only; the orchestrator persists its result.
type FraudScreen struct {
	now func() time.Time
	log zerolog.Logger
}

// NewFraudScreen creates a fraud screen using the wall clock.
func NewFraudScreen() *FraudScreen {
	return &FraudScreen{
		now: time.Now,
		log: logger.WithComponent("fraud-screen"),
	}
}

// Evaluate runs the fraud signals in fixed order. Severity only ever
// escalates (clean -> flagged -> fraud); a confirmed duplicate skips the
// remaining signals, and the repeated-client pattern only fires while the
// status is still clean. A lookup failure aborts the whole evaluation.
func (f *FraudScreen) Evaluate(ctx context.Context, inv *models.Invoice, biz *models.Business, lookup InvoiceLookup) (FraudResult, error) {
	const op = "Evaluate"

	result := FraudResult{Status: models.FraudClean}

	// Signal 1: duplicate invoice number. The only signal that can force
	// a hard fraud verdict.
	dup, err := lookup.FindDuplicate(ctx, inv.BusinessID, inv.InvoiceNumber, inv.ID)
	if err != nil {
		return FraudResult{}, wrapPipelineError(op, inv.ID, fmt.Errorf("%w: duplicate check: %v", ErrLookupFailed, err))
	}
	if dup != nil {
		result.Status = models.FraudConfirmed
		result.Notes = append(result.Notes, noteDuplicateNumber)
		f.log.Warn().
			Str("invoice_id", inv.ID).
			Str("duplicate_of", dup.ID).
			Str("invoice_number", inv.InvoiceNumber).
			Msg("Duplicate invoice number detected")
	}

	if result.Status != models.FraudConfirmed {
		// Signal 2: abnormal amount spike against annual revenue.
		if inv.TotalAmount.GreaterThan(biz.AnnualRevenue.Mul(amountSpikeRatio)) {
			result.Status = models.FraudFlagged
			result.Notes = append(result.Notes, noteAmountSpike)
		}

		// Signal 3: upload frequency over the trailing 24 hours. The count
		// includes this submission when it has already been persisted.
		since := f.now().Add(-uploadFrequencyWindow)
		recent, err := lookup.CountRecent(ctx, inv.BusinessID, since)
		if err != nil {
			return FraudResult{}, wrapPipelineError(op, inv.ID, fmt.Errorf("%w: frequency check: %v", ErrLookupFailed, err))
		}
		if recent >= uploadFrequencyLimit {
			result.Status = models.FraudFlagged
			result.Notes = append(result.Notes, noteUploadFrequency)
		}
	}

	// Signal 4: repeated buyer pattern, only while still clean and only
	// for businesses younger than a year.
	if result.Status == models.FraudClean && biz.YearsInOperation < 1 {
		prior, err := lookup.CountByBuyer(ctx, inv.BusinessID, inv.BuyerName, inv.ID)
		if err != nil {
			return FraudResult{}, wrapPipelineError(op, inv.ID, fmt.Errorf("%w: buyer pattern check: %v", ErrLookupFailed, err))
		}
		if prior >= repeatedClientMinPrior {
			result.Status = models.FraudFlagged
			result.Notes = append(result.Notes, noteRepeatedClient)
		}
	}

	f.log.Debug().
		Str("invoice_id", inv.ID).
		Str("status", string(result.Status)).
		Strs("notes", result.Notes).
		Msg("Fraud screen completed")

	return result, nil
}
