package financing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invofin/pkg/models"
)

// fakeStore is an in-memory InvoiceStore with canned lookup answers and
// injectable failures.
type fakeStore struct {
	dup        *models.Invoice
	dupErr     error
	recent     int
	recentErr  error
	byBuyer    int
	byBuyerErr error
	approved   []models.Invoice

	saved   []models.Invoice
	saveErr error
}

func (s *fakeStore) FindDuplicate(ctx context.Context, businessID, invoiceNumber, excludeID string) (*models.Invoice, error) {
	return s.dup, s.dupErr
}

func (s *fakeStore) CountRecent(ctx context.Context, businessID string, since time.Time) (int, error) {
	return s.recent, s.recentErr
}

func (s *fakeStore) CountByBuyer(ctx context.Context, businessID, buyerName, excludeID string) (int, error) {
	return s.byBuyer, s.byBuyerErr
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	for i := range s.saved {
		if s.saved[i].ID == id {
			return &s.saved[i], nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (s *fakeStore) FindAllApproved(ctx context.Context) ([]models.Invoice, error) {
	return s.approved, nil
}

func (s *fakeStore) Save(ctx context.Context, invoice *models.Invoice) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, *invoice)
	return nil
}

// fakeSink records every audit event it receives.
type fakeSink struct {
	events []AuditEvent
}

func (s *fakeSink) Record(ctx context.Context, event AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) actions() []string {
	var out []string
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

// fakeNotifier records approval notifications.
type fakeNotifier struct {
	notified []string
	err      error
}

func (n *fakeNotifier) NotifyApproval(ctx context.Context, invoice *models.Invoice, amount decimal.Decimal) error {
	n.notified = append(n.notified, invoice.ID)
	return n.err
}

func newTestPipeline(store *fakeStore, sink *fakeSink, notifier *fakeNotifier) *Pipeline {
	p := NewPipeline(PipelineDeps{
		Invoices: store,
		Audit:    sink,
		Notifier: notifier,
	})
	// Pin the clocks so validation and fraud windows are deterministic.
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	p.screen.now = now
	p.validator.now = now
	return p
}

// healthyInvoice returns a submission that sails through every stage:
// six-year-old business, 12M revenue, 5,000 invoice on a 29-day cycle.
// Score 50+15+20+15+10 = 110, grade A, risk LOW, financed at 85%.
func healthyInvoice() (*models.Invoice, *models.Business) {
	inv := &models.Invoice{
		ID:            "inv-1",
		BusinessID:    "biz-1",
		InvoiceNumber: "INV-001",
		TotalAmount:   decimal.NewFromInt(5_000),
		IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
		BuyerName:     "Globex Retail",
		BuyerTaxID:    "29ABCDE1234F1Z5",
		Status:        models.StatusUploaded,
		CreatedAt:     time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	biz := &models.Business{
		ID:               "biz-1",
		UserID:           "usr-1",
		Name:             "Acme Traders",
		AnnualRevenue:    decimal.NewFromInt(12_000_000),
		YearsInOperation: 6,
	}
	return inv, biz
}

func TestEvaluateApprovesHealthyInvoice(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	p := newTestPipeline(store, sink, notifier)

	inv, biz := healthyInvoice()
	report, err := p.Evaluate(context.Background(), inv, biz)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if report.Outcome != OutcomeApproved {
		t.Fatalf("Outcome = %q, want %q", report.Outcome, OutcomeApproved)
	}
	for _, stage := range []Stage{StageFraudScreen, StageValidation, StageScoring, StageClassification, StageDecision} {
		if !report.Ran(stage) {
			t.Errorf("stage %q did not run", stage)
		}
	}

	if inv.FraudStatus != models.FraudClean {
		t.Errorf("FraudStatus = %q, want clean", inv.FraudStatus)
	}
	if inv.ValidationStatus != models.ValidationValid {
		t.Errorf("ValidationStatus = %q, want valid", inv.ValidationStatus)
	}
	if inv.CreditScore != 110 {
		t.Errorf("CreditScore = %d, want 110", inv.CreditScore)
	}
	if inv.CreditGrade != models.GradeA {
		t.Errorf("CreditGrade = %q, want A", inv.CreditGrade)
	}
	if inv.RiskLevel != models.RiskLow {
		t.Errorf("RiskLevel = %q, want LOW", inv.RiskLevel)
	}
	if inv.FinancingStatus != models.FinancingApproved {
		t.Errorf("FinancingStatus = %q, want approved", inv.FinancingStatus)
	}
	if got, want := inv.FinancedAmount.String(), "4250"; got != want {
		t.Errorf("FinancedAmount = %s, want %s", got, want)
	}
	if got, want := inv.PlatformFee.String(), "85"; got != want {
		t.Errorf("PlatformFee = %s, want %s", got, want)
	}
	if inv.Status != models.StatusFinanced {
		t.Errorf("Status = %q, want financed", inv.Status)
	}
	if inv.RepaymentStatus != models.RepaymentPending {
		t.Errorf("RepaymentStatus = %q, want pending", inv.RepaymentStatus)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d checkpoints, want 1", len(store.saved))
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "invoice.approved" {
		t.Errorf("audit actions = %v, want [invoice.approved]", got)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != inv.ID {
		t.Errorf("notified = %v, want [%s]", notifier.notified, inv.ID)
	}
}

// A small business (100k revenue, 6 years) submitting a 5,000 invoice
// on a 19-day cycle: score 50+15+5+15+10 = 95, grade A, risk LOW,
// financed at 85% = 4,250 with an 85 fee.
func TestEvaluateSmallBusinessScenario(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, &fakeSink{}, &fakeNotifier{})

	inv := &models.Invoice{
		ID:            "inv-1",
		BusinessID:    "biz-1",
		InvoiceNumber: "INV-001",
		TotalAmount:   decimal.NewFromInt(5_000),
		IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		BuyerName:     "Globex Retail",
		BuyerTaxID:    "29ABCDE1234F1Z5",
		Status:        models.StatusUploaded,
	}
	biz := &models.Business{
		ID:               "biz-1",
		AnnualRevenue:    decimal.NewFromInt(100_000),
		YearsInOperation: 6,
	}

	report, err := p.Evaluate(context.Background(), inv, biz)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if report.Outcome != OutcomeApproved {
		t.Fatalf("Outcome = %q, want approved (validation: %v)", report.Outcome, inv.ValidationNotes)
	}
	if inv.CreditScore != 95 {
		t.Errorf("CreditScore = %d, want 95 (notes: %v)", inv.CreditScore, inv.CreditNotes)
	}
	if inv.CreditGrade != models.GradeA {
		t.Errorf("CreditGrade = %q, want A", inv.CreditGrade)
	}
	if inv.RiskLevel != models.RiskLow {
		t.Errorf("RiskLevel = %q, want LOW (notes: %v)", inv.RiskLevel, inv.RiskNotes)
	}
	if got, want := inv.FinancedAmount.String(), "4250"; got != want {
		t.Errorf("FinancedAmount = %s, want %s", got, want)
	}
	if got, want := inv.PlatformFee.String(), "85"; got != want {
		t.Errorf("PlatformFee = %s, want %s", got, want)
	}
}

func TestEvaluateBlocksDuplicateWithoutRunningDownstream(t *testing.T) {
	store := &fakeStore{dup: &models.Invoice{ID: "inv-0", InvoiceNumber: "INV-001"}}
	sink := &fakeSink{}
	p := newTestPipeline(store, sink, &fakeNotifier{})

	inv, biz := healthyInvoice()
	report, err := p.Evaluate(context.Background(), inv, biz)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if report.Outcome != OutcomeBlocked {
		t.Fatalf("Outcome = %q, want %q", report.Outcome, OutcomeBlocked)
	}
	for _, stage := range []Stage{StageValidation, StageScoring, StageClassification, StageDecision} {
		if report.Ran(stage) {
			t.Errorf("stage %q ran after a fraud block", stage)
		}
	}

	if inv.FraudStatus != models.FraudConfirmed {
		t.Errorf("FraudStatus = %q, want fraud", inv.FraudStatus)
	}
	if inv.FinancingStatus != models.FinancingBlocked {
		t.Errorf("FinancingStatus = %q, want blocked", inv.FinancingStatus)
	}
	if inv.Status != models.StatusBlocked {
		t.Errorf("Status = %q, want blocked", inv.Status)
	}
	if len(inv.DecisionNotes) != 1 || inv.DecisionNotes[0] != "Blocked due to fraud/suspicious activity" {
		t.Errorf("DecisionNotes = %v", inv.DecisionNotes)
	}
	if inv.ValidationStatus != "" || inv.CreditScore != 0 || inv.RiskLevel != "" {
		t.Errorf("downstream fields populated after block: validation=%q score=%d risk=%q",
			inv.ValidationStatus, inv.CreditScore, inv.RiskLevel)
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "invoice.blocked" {
		t.Errorf("audit actions = %v, want [invoice.blocked]", got)
	}
}

func TestEvaluateRejectsInvalidWithoutScoring(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	p := newTestPipeline(store, sink, &fakeNotifier{})

	// Exposure over 30% of revenue fails validation.
	inv, biz := healthyInvoice()
	biz.AnnualRevenue = decimal.NewFromInt(10_000)

	report, err := p.Evaluate(context.Background(), inv, biz)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if report.Outcome != OutcomeRejected {
		t.Fatalf("Outcome = %q, want %q", report.Outcome, OutcomeRejected)
	}
	if report.Ran(StageScoring) || report.Ran(StageClassification) || report.Ran(StageDecision) {
		t.Errorf("scoring stages ran after a validation rejection: %v", report.Stages)
	}
	if inv.ValidationStatus != models.ValidationInvalid {
		t.Errorf("ValidationStatus = %q, want invalid", inv.ValidationStatus)
	}
	if len(inv.ValidationNotes) != 1 || inv.ValidationNotes[0] != "Invoice amount exceeds 30% of annual revenue" {
		t.Errorf("ValidationNotes = %v", inv.ValidationNotes)
	}
	if inv.FinancingStatus != models.FinancingRejected {
		t.Errorf("FinancingStatus = %q, want rejected", inv.FinancingStatus)
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "invoice.rejected" {
		t.Errorf("audit actions = %v, want [invoice.rejected]", got)
	}
}

func TestEvaluateAbortsOnLookupFailure(t *testing.T) {
	store := &fakeStore{dupErr: errors.New("connection refused")}
	p := newTestPipeline(store, &fakeSink{}, &fakeNotifier{})

	inv, biz := healthyInvoice()
	_, err := p.Evaluate(context.Background(), inv, biz)
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("Evaluate() error = %v, want ErrLookupFailed", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("saved %d invoices after an aborted run, want 0", len(store.saved))
	}
}

func TestEvaluateAbortsOnSaveFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	p := newTestPipeline(store, &fakeSink{}, &fakeNotifier{})

	inv, biz := healthyInvoice()
	_, err := p.Evaluate(context.Background(), inv, biz)
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("Evaluate() error = %v, want ErrSaveFailed", err)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	run := func() *models.Invoice {
		p := newTestPipeline(&fakeStore{}, &fakeSink{}, &fakeNotifier{})
		inv, biz := healthyInvoice()
		if _, err := p.Evaluate(context.Background(), inv, biz); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		return inv
	}

	first, second := run(), run()
	if first.CreditScore != second.CreditScore ||
		first.CreditGrade != second.CreditGrade ||
		first.RiskLevel != second.RiskLevel ||
		!first.FinancedAmount.Equal(second.FinancedAmount) ||
		!first.PlatformFee.Equal(second.PlatformFee) {
		t.Errorf("identical inputs produced different outcomes:\n%+v\n%+v", first, second)
	}
	if len(first.CreditNotes) != len(second.CreditNotes) {
		t.Errorf("note counts differ: %v vs %v", first.CreditNotes, second.CreditNotes)
	}
	for i := range first.CreditNotes {
		if first.CreditNotes[i] != second.CreditNotes[i] {
			t.Errorf("note order differs at %d: %q vs %q", i, first.CreditNotes[i], second.CreditNotes[i])
		}
	}
}

func TestRecordPaymentRejectsUnapprovedInvoice(t *testing.T) {
	p := newTestPipeline(&fakeStore{}, &fakeSink{}, &fakeNotifier{})

	inv, _ := healthyInvoice()
	inv.FinancingStatus = models.FinancingRejected

	err := p.RecordPayment(context.Background(), inv, time.Now())
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("RecordPayment() error = %v, want ErrNotApproved", err)
	}
}

func TestRecordPaymentMarksApprovedInvoicePaid(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	p := newTestPipeline(store, sink, &fakeNotifier{})

	inv, _ := healthyInvoice()
	inv.FinancingStatus = models.FinancingApproved
	inv.RepaymentStatus = models.RepaymentPending

	paid := inv.DueDate.AddDate(0, 0, -1)
	if err := p.RecordPayment(context.Background(), inv, paid); err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	if inv.RepaymentStatus != models.RepaymentPaid {
		t.Errorf("RepaymentStatus = %q, want paid", inv.RepaymentStatus)
	}
	if inv.Status != models.StatusRepaid {
		t.Errorf("Status = %q, want repaid", inv.Status)
	}
	if inv.RepaymentDate == nil || !inv.RepaymentDate.Equal(paid) {
		t.Errorf("RepaymentDate = %v, want %v", inv.RepaymentDate, paid)
	}
	if len(inv.RepaymentNotes) != 1 || inv.RepaymentNotes[0] != "Repaid on time" {
		t.Errorf("RepaymentNotes = %v", inv.RepaymentNotes)
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "invoice.repaid" {
		t.Errorf("audit actions = %v, want [invoice.repaid]", got)
	}
}

func TestSweepDefaultsWritesOffOverdueInvoices(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	overdue := models.Invoice{
		ID:              "inv-overdue",
		FinancingStatus: models.FinancingApproved,
		RepaymentStatus: models.RepaymentPending,
		FinancedAmount:  decimal.NewFromInt(4_000),
		DueDate:         now.AddDate(0, 0, -45),
	}
	inGrace := models.Invoice{
		ID:              "inv-in-grace",
		FinancingStatus: models.FinancingApproved,
		RepaymentStatus: models.RepaymentPending,
		FinancedAmount:  decimal.NewFromInt(2_000),
		DueDate:         now.AddDate(0, 0, -10),
	}
	alreadyPaid := models.Invoice{
		ID:              "inv-paid",
		FinancingStatus: models.FinancingApproved,
		RepaymentStatus: models.RepaymentPaid,
		DueDate:         now.AddDate(0, 0, -90),
	}

	store := &fakeStore{approved: []models.Invoice{overdue, inGrace, alreadyPaid}}
	sink := &fakeSink{}
	p := newTestPipeline(store, sink, &fakeNotifier{})

	defaulted, err := p.SweepDefaults(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepDefaults() error = %v", err)
	}
	if defaulted != 1 {
		t.Fatalf("defaulted = %d, want 1", defaulted)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d invoices, want 1", len(store.saved))
	}
	written := store.saved[0]
	if written.ID != "inv-overdue" {
		t.Errorf("wrote off %q, want inv-overdue", written.ID)
	}
	if written.RepaymentStatus != models.RepaymentDefaulted {
		t.Errorf("RepaymentStatus = %q, want defaulted", written.RepaymentStatus)
	}
	if written.Status != models.StatusDefaulted {
		t.Errorf("Status = %q, want defaulted", written.Status)
	}
	if !written.DefaultLoss.Equal(decimal.NewFromInt(4_000)) {
		t.Errorf("DefaultLoss = %s, want 4000", written.DefaultLoss)
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "invoice.defaulted" {
		t.Errorf("audit actions = %v, want [invoice.defaulted]", got)
	}
}

func TestEvaluateApprovalSurvivesNotifierFailure(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	p := newTestPipeline(store, &fakeSink{}, notifier)

	inv, biz := healthyInvoice()
	report, err := p.Evaluate(context.Background(), inv, biz)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if report.Outcome != OutcomeApproved {
		t.Errorf("Outcome = %q, want approved despite notifier failure", report.Outcome)
	}
	if inv.FinancingStatus != models.FinancingApproved {
		t.Errorf("FinancingStatus = %q, want approved", inv.FinancingStatus)
	}
}
