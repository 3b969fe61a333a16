package financing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

var (
	// financingExposureLimit caps the financed amount per invoice.
	financingExposureLimit = decimal.NewFromInt(4_000_000)

	// platformFeeRate is charged on the post-cap financed amount.
	platformFeeRate = decimal.NewFromFloat(0.02)

	lowRiskPercentage    = decimal.NewFromFloat(0.80)
	mediumRiskPercentage = decimal.NewFromFloat(0.60)
	gradeABonus          = decimal.NewFromFloat(0.05)
)

// DecisionResult is the financing decision for one invoice: either a
// rejection, or an approved amount with the platform fee.
type DecisionResult struct {
	Status         models.FinancingStatus
	FinancedAmount decimal.Decimal
	PlatformFee    decimal.Decimal
	Notes          models.NoteList
}

// FinancingDecider converts the risk tier and credit grade into an
// approved financing amount and platform fee, or a rejection.
type FinancingDecider struct {
	log zerolog.Logger
}

// NewFinancingDecider creates a financing decider.
func NewFinancingDecider() *FinancingDecider {
	return &FinancingDecider{log: logger.WithComponent("financing-decider")}
}

// Decide computes the financing terms. Invalid and high-risk invoices
// are rejected; otherwise the base percentage follows the risk tier,
// grade A adds a bonus, the financed amount is capped by the platform
// exposure limit, and the fee is charged on the capped amount.
func (d *FinancingDecider) Decide(inv *models.Invoice) DecisionResult {
	if inv.ValidationStatus != models.ValidationValid {
		return DecisionResult{
			Status: models.FinancingRejected,
			Notes:  models.NoteList{"Invoice is invalid"},
		}
	}

	if inv.RiskLevel == models.RiskHigh {
		return DecisionResult{
			Status: models.FinancingRejected,
			Notes:  models.NoteList{"High risk invoice"},
		}
	}

	var (
		percentage decimal.Decimal
		notes      models.NoteList
	)
	switch inv.RiskLevel {
	case models.RiskLow:
		percentage = lowRiskPercentage
		notes = append(notes, "Low risk invoice (80% financing)")
	default: // MEDIUM
		percentage = mediumRiskPercentage
		notes = append(notes, "Medium risk invoice (60% financing)")
	}

	if inv.CreditGrade == models.GradeA {
		percentage = percentage.Add(gradeABonus)
		notes = append(notes, "Excellent credit bonus (+5%)")
	}

	amount := inv.TotalAmount.Mul(percentage)
	if amount.GreaterThan(financingExposureLimit) {
		amount = financingExposureLimit
		notes = append(notes, "Capped by platform exposure limit")
	}

	amount = amount.Round(2)
	fee := amount.Mul(platformFeeRate).Round(2)

	result := DecisionResult{
		Status:         models.FinancingApproved,
		FinancedAmount: amount,
		PlatformFee:    fee,
		Notes:          notes,
	}

	d.log.Debug().
		Str("invoice_id", inv.ID).
		Str("financed_amount", amount.String()).
		Str("platform_fee", fee.String()).
		Msg("Financing decision completed")

	return result
}
