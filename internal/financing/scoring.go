package financing

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

const baseCreditScore = 50

var (
	revenueTierHigh = decimal.NewFromInt(10_000_000)
	revenueTierMid  = decimal.NewFromInt(2_500_000)

	exposureTierLow = decimal.NewFromInt(10) // percent
	exposureTierMid = decimal.NewFromInt(30) // percent
)

// ScoreResult carries the numeric score, the derived letter grade, and
// one note per applied rule with its signed delta.
type ScoreResult struct {
	Score int
	Grade models.CreditGrade
	Notes models.NoteList
}

// CreditScorer computes a credit score from invoice and business
// attributes. It is a pure function of its bucketed inputs: the same
// invoice/business pair always yields the same score, grade, and note
// order. The score carries no upper cap and can exceed 100 when every
// bucket is favorable.
type CreditScorer struct {
	log zerolog.Logger
}

// NewCreditScorer creates a credit scorer.
func NewCreditScorer() *CreditScorer {
	return &CreditScorer{log: logger.WithComponent("credit-scorer")}
}

// Score evaluates the additive rule set over a validated invoice. An
// invoice that is not marked valid scores 0 with grade D; in normal flow
// validation already gated this.
func (s *CreditScorer) Score(inv *models.Invoice, biz *models.Business) ScoreResult {
	if inv.ValidationStatus != models.ValidationValid {
		return ScoreResult{
			Score: 0,
			Grade: models.GradeD,
			Notes: models.NoteList{"Invoice is invalid"},
		}
	}

	score := baseCreditScore
	var notes models.NoteList

	// Business age bucket.
	switch {
	case biz.YearsInOperation >= 5:
		score += 15
		notes = append(notes, "Business operating 5+ years (+15)")
	case biz.YearsInOperation >= 2:
		score += 10
		notes = append(notes, "Business operating 2+ years (+10)")
	default:
		score += 5
		notes = append(notes, "Business operating under 2 years (+5)")
	}

	// Annual revenue bucket.
	switch {
	case biz.AnnualRevenue.GreaterThanOrEqual(revenueTierHigh):
		score += 20
		notes = append(notes, "Annual revenue 10M+ (+20)")
	case biz.AnnualRevenue.GreaterThanOrEqual(revenueTierMid):
		score += 10
		notes = append(notes, "Annual revenue 2.5M+ (+10)")
	default:
		score += 5
		notes = append(notes, "Annual revenue under 2.5M (+5)")
	}

	// Exposure bucket: invoice amount as a percentage of annual revenue.
	exposure := inv.Exposure(biz).Mul(decimal.NewFromInt(100))
	switch {
	case exposure.LessThanOrEqual(exposureTierLow):
		score += 15
		notes = append(notes, "Invoice exposure within 10% of revenue (+15)")
	case exposure.LessThanOrEqual(exposureTierMid):
		score += 5
		notes = append(notes, "Invoice exposure within 30% of revenue (+5)")
	default:
		score -= 10
		notes = append(notes, "Invoice exposure above 30% of revenue (-10)")
	}

	// Payment cycle bucket.
	cycle := inv.PaymentCycleDays()
	switch {
	case cycle <= 30:
		score += 10
		notes = append(notes, "Payment cycle within 30 days (+10)")
	case cycle <= 60:
		score += 5
		notes = append(notes, "Payment cycle within 60 days (+5)")
	default:
		score -= 5
		notes = append(notes, "Payment cycle beyond 60 days (-5)")
	}

	result := ScoreResult{
		Score: score,
		Grade: gradeFor(score),
		Notes: notes,
	}

	s.log.Debug().
		Str("invoice_id", inv.ID).
		Int("score", result.Score).
		Str("grade", string(result.Grade)).
		Msg("Credit scoring completed")

	return result
}

// gradeFor maps a final score onto a letter grade.
func gradeFor(score int) models.CreditGrade {
	switch {
	case score >= 80:
		return models.GradeA
	case score >= 65:
		return models.GradeB
	case score >= 50:
		return models.GradeC
	default:
		return models.GradeD
	}
}
