package financing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

// Stage identifies one step of the decision pipeline. The run report
// records which stages executed so a short-circuit can be asserted
// directly instead of inferred from absent fields.
type Stage string

const (
	StageFraudScreen    Stage = "fraud_screen"
	StageValidation     Stage = "validation"
	StageScoring        Stage = "scoring"
	StageClassification Stage = "classification"
	StageDecision       Stage = "decision"
)

// Outcome is the terminal result of one pipeline run.
type Outcome string

const (
	OutcomeBlocked  Outcome = "blocked"
	OutcomeRejected Outcome = "rejected"
	OutcomeApproved Outcome = "approved"
)

const noteBlockedSuspicious = "Blocked due to fraud/suspicious activity"
const noteValidationFailed = "Invoice validation failed"

// RunReport summarizes one pipeline run over a submission.
type RunReport struct {
	InvoiceID string  `json:"invoiceId"`
	Outcome   Outcome `json:"outcome"`
	Stages    []Stage `json:"stages"`
}

// Ran reports whether the given stage executed during the run.
func (r *RunReport) Ran(stage Stage) bool {
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// PipelineDeps wires the collaborators into the orchestrator.
type PipelineDeps struct {
	Invoices InvoiceStore
	Audit    AuditSink
	Notifier Notifier
}

// Pipeline sequences fraud screening, validation, scoring, risk
// classification and the financing decision over one invoice
// submission, enforcing the short-circuit rules, and later drives the
// repayment lifecycle of approved invoices.
//
// Each stage returns a small result struct; the pipeline applies it to
// the invoice as an explicit reducer and persists rollups only at the
// short-circuit boundaries, so a collaborator failure never leaves a
// partially evaluated state visible.
type Pipeline struct {
	screen     *FraudScreen
	validator  *ValidationEngine
	scorer     *CreditScorer
	classifier *RiskClassifier
	decider    *FinancingDecider
	tracker    *RepaymentTracker

	invoices InvoiceStore
	audit    AuditSink
	notifier Notifier

	log zerolog.Logger
}

// NewPipeline constructs the orchestrator with default rule components.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		screen:     NewFraudScreen(),
		validator:  NewValidationEngine(),
		scorer:     NewCreditScorer(),
		classifier: NewRiskClassifier(),
		decider:    NewFinancingDecider(),
		tracker:    NewRepaymentTracker(),
		invoices:   deps.Invoices,
		audit:      deps.Audit,
		notifier:   deps.Notifier,
		log:        logger.WithComponent("pipeline"),
	}
}

// Evaluate runs the decision pipeline once, synchronously, over an
// uploaded invoice. It mutates the invoice to its terminal state,
// persists it, and returns the run report. A store failure aborts the
// whole run without persisting partial results.
func (p *Pipeline) Evaluate(ctx context.Context, inv *models.Invoice, biz *models.Business) (*RunReport, error) {
	const op = "Evaluate"

	report := &RunReport{InvoiceID: inv.ID}

	// Stage 1: fraud screen. Mandatory and ordered first; a lookup
	// failure fails the submission rather than skipping screening.
	report.Stages = append(report.Stages, StageFraudScreen)
	fraud, err := p.screen.Evaluate(ctx, inv, biz, p.invoices)
	if err != nil {
		return nil, wrapPipelineError(op, inv.ID, err)
	}
	inv.FraudStatus = fraud.Status
	inv.FraudNotes = fraud.Notes

	if fraud.Status != models.FraudClean {
		inv.FinancingStatus = models.FinancingBlocked
		inv.Status = models.StatusBlocked
		inv.DecisionNotes = models.NoteList{noteBlockedSuspicious}
		report.Outcome = OutcomeBlocked
		if err := p.checkpoint(ctx, op, inv); err != nil {
			return nil, err
		}
		p.emitAudit(ctx, "invoice.blocked", inv.ID, noteBlockedSuspicious)
		p.log.Warn().
			Str("invoice_id", inv.ID).
			Str("fraud_status", string(fraud.Status)).
			Msg("Submission blocked by fraud screen")
		return report, nil
	}

	// Stage 2: validation. All rules run; all failures are collected.
	report.Stages = append(report.Stages, StageValidation)
	validation := p.validator.Validate(inv, biz)
	inv.ValidationNotes = validation.Errors
	if !validation.IsValid {
		inv.ValidationStatus = models.ValidationInvalid
		inv.FinancingStatus = models.FinancingRejected
		inv.DecisionNotes = models.NoteList{noteValidationFailed}
		report.Outcome = OutcomeRejected
		if err := p.checkpoint(ctx, op, inv); err != nil {
			return nil, err
		}
		p.emitAudit(ctx, "invoice.rejected", inv.ID, noteValidationFailed)
		return report, nil
	}
	inv.ValidationStatus = models.ValidationValid
	inv.Status = models.StatusValidated

	// Stage 3: credit scoring.
	report.Stages = append(report.Stages, StageScoring)
	score := p.scorer.Score(inv, biz)
	inv.CreditScore = score.Score
	inv.CreditGrade = score.Grade
	inv.CreditNotes = score.Notes

	// Stage 4: risk classification.
	report.Stages = append(report.Stages, StageClassification)
	risk := p.classifier.Classify(inv, biz)
	inv.RiskLevel = risk.Level
	inv.RiskNotes = risk.Notes

	// Stage 5: financing decision.
	report.Stages = append(report.Stages, StageDecision)
	decision := p.decider.Decide(inv)
	inv.FinancingStatus = decision.Status
	inv.FinancedAmount = decision.FinancedAmount
	inv.PlatformFee = decision.PlatformFee
	inv.DecisionNotes = decision.Notes

	if decision.Status == models.FinancingApproved {
		inv.Status = models.StatusFinanced
		inv.RepaymentStatus = models.RepaymentPending
		report.Outcome = OutcomeApproved
	} else {
		report.Outcome = OutcomeRejected
	}

	if err := p.checkpoint(ctx, op, inv); err != nil {
		return nil, err
	}

	if decision.Status == models.FinancingApproved {
		p.emitAudit(ctx, "invoice.approved", inv.ID,
			fmt.Sprintf("Financing approved: %s advanced at %s fee", inv.FinancedAmount, inv.PlatformFee))
		if p.notifier != nil {
			if err := p.notifier.NotifyApproval(ctx, inv, inv.FinancedAmount); err != nil {
				p.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("Approval notification failed")
			}
		}
	} else {
		p.emitAudit(ctx, "invoice.rejected", inv.ID, firstNote(decision.Notes))
	}

	p.log.Info().
		Str("invoice_id", inv.ID).
		Str("outcome", string(report.Outcome)).
		Int("credit_score", inv.CreditScore).
		Str("risk_level", string(inv.RiskLevel)).
		Msg("Pipeline run completed")

	return report, nil
}

// RecordPayment marks an approved invoice repaid. Invoices whose
// financing was never approved are rejected up front.
func (p *Pipeline) RecordPayment(ctx context.Context, inv *models.Invoice, paymentDate time.Time) error {
	const op = "RecordPayment"

	if inv.FinancingStatus != models.FinancingApproved {
		return wrapPipelineError(op, inv.ID, ErrNotApproved)
	}

	result := p.tracker.RecordPayment(inv, paymentDate)
	inv.RepaymentStatus = result.Status
	inv.RepaymentDate = result.RepaymentDate
	inv.RepaymentNotes = append(inv.RepaymentNotes, result.Notes...)
	inv.Status = models.StatusRepaid

	if err := p.checkpoint(ctx, op, inv); err != nil {
		return err
	}
	p.emitAudit(ctx, "invoice.repaid", inv.ID, firstNote(result.Notes))
	return nil
}

// SweepDefaults checks every approved invoice for default as of now.
// Each invoice is handled independently; one failing save aborts the
// sweep and reports how many invoices were already written off.
func (p *Pipeline) SweepDefaults(ctx context.Context, now time.Time) (int, error) {
	const op = "SweepDefaults"

	approved, err := p.invoices.FindAllApproved(ctx)
	if err != nil {
		return 0, wrapPipelineError(op, "", fmt.Errorf("%w: %v", ErrLookupFailed, err))
	}

	defaulted := 0
	for i := range approved {
		inv := &approved[i]
		result := p.tracker.CheckDefault(inv, now)
		if !result.Changed {
			continue
		}
		inv.RepaymentStatus = result.Status
		inv.DefaultLoss = result.DefaultLoss
		inv.RepaymentNotes = append(inv.RepaymentNotes, result.Notes...)
		inv.Status = models.StatusDefaulted

		if err := p.checkpoint(ctx, op, inv); err != nil {
			return defaulted, err
		}
		p.emitAudit(ctx, "invoice.defaulted", inv.ID, firstNote(result.Notes))
		defaulted++
	}

	p.log.Info().
		Int("approved", len(approved)).
		Int("defaulted", defaulted).
		Msg("Default sweep completed")

	return defaulted, nil
}

// checkpoint persists the invoice rollup at a short-circuit boundary.
func (p *Pipeline) checkpoint(ctx context.Context, op string, inv *models.Invoice) error {
	inv.UpdatedAt = time.Now()
	if err := p.invoices.Save(ctx, inv); err != nil {
		return wrapPipelineError(op, inv.ID, fmt.Errorf("%w: %v", ErrSaveFailed, err))
	}
	return nil
}

// emitAudit records an audit event. Sink failures are logged and
// swallowed; they never roll back the decision.
func (p *Pipeline) emitAudit(ctx context.Context, action, entityID, message string) {
	if p.audit == nil {
		return
	}
	event := AuditEvent{Action: action, EntityID: entityID, Message: message}
	if err := p.audit.Record(ctx, event); err != nil {
		p.log.Warn().Err(err).Str("action", action).Str("entity_id", entityID).Msg("Audit sink failed")
	}
}

func firstNote(notes models.NoteList) string {
	if len(notes) == 0 {
		return ""
	}
	return notes[0]
}
