package financing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

// riskExposureThreshold adds a penalty when the invoice exceeds this
// fraction of annual revenue.
var riskExposureThreshold = decimal.NewFromFloat(0.25)

// longCycleDays is the strict boundary for the long-payment-cycle
// penalty: exactly 60 days does not trigger it, 61 does.
const longCycleDays = 60

// RiskResult carries the derived risk tier and its explanatory notes.
type RiskResult struct {
	Level models.RiskLevel
	Notes models.NoteList
}

// RiskClassifier derives a coarse risk tier from the credit grade plus
// exposure and cycle-length signals. The risk score is additive only.
type RiskClassifier struct {
	log zerolog.Logger
}

// NewRiskClassifier creates a risk classifier.
func NewRiskClassifier() *RiskClassifier {
	return &RiskClassifier{log: logger.WithComponent("risk-classifier")}
}

// Classify computes the risk tier for a scored invoice.
func (r *RiskClassifier) Classify(inv *models.Invoice, biz *models.Business) RiskResult {
	score := 0
	var notes models.NoteList

	switch inv.CreditGrade {
	case models.GradeA:
		notes = append(notes, "Excellent credit grade")
	case models.GradeB:
		score += 1
		notes = append(notes, "Moderate credit grade")
	default:
		score += 3
		notes = append(notes, "Poor credit grade")
	}

	if inv.Exposure(biz).GreaterThan(riskExposureThreshold) {
		score += 3
		notes = append(notes, "High invoice exposure")
	}

	if inv.PaymentCycleDays() > longCycleDays {
		score += 2
		notes = append(notes, "Long payment cycle")
	}

	if biz.YearsInOperation < 2 {
		score += 2
		notes = append(notes, "New business")
	}

	result := RiskResult{
		Level: riskLevelFor(score),
		Notes: notes,
	}

	r.log.Debug().
		Str("invoice_id", inv.ID).
		Int("risk_score", score).
		Str("risk_level", string(result.Level)).
		Msg("Risk classification completed")

	return result
}

func riskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= 5:
		return models.RiskHigh
	case score >= 3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
