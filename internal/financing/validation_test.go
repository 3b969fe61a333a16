package financing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invofin/pkg/models"
)

func newTestValidationEngine() *ValidationEngine {
	engine := NewValidationEngine()
	engine.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return engine
}

func TestValidateRules(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	validInvoice := func() *models.Invoice {
		return &models.Invoice{
			ID:          "inv-1",
			TotalAmount: decimal.NewFromInt(50_000),
			IssueDate:   day(1),
			DueDate:     day(31),
			BuyerTaxID:  "29ABCDE1234F1Z5",
		}
	}
	business := &models.Business{
		ID:            "biz-1",
		AnnualRevenue: decimal.NewFromInt(1_000_000),
	}

	tests := []struct {
		name     string
		invoice  func(*models.Invoice)
		wantErrs []string
	}{
		{
			name: "valid invoice",
		},
		{
			name:     "zero amount",
			invoice:  func(inv *models.Invoice) { inv.TotalAmount = decimal.Zero },
			wantErrs: []string{"Invoice amount must be greater than zero"},
		},
		{
			name:     "negative amount",
			invoice:  func(inv *models.Invoice) { inv.TotalAmount = decimal.NewFromInt(-100) },
			wantErrs: []string{"Invoice amount must be greater than zero"},
		},
		{
			name: "due date equals issue date",
			invoice: func(inv *models.Invoice) {
				inv.IssueDate = day(10)
				inv.DueDate = day(10)
			},
			wantErrs: []string{"Due date must be after issue date"},
		},
		{
			name: "already overdue",
			invoice: func(inv *models.Invoice) {
				inv.IssueDate = day(1).AddDate(0, -2, 0)
				inv.DueDate = day(1).AddDate(0, -1, 0)
			},
			wantErrs: []string{"Invoice is already overdue"},
		},
		{
			name: "due today is not overdue",
			invoice: func(inv *models.Invoice) {
				inv.IssueDate = day(1).AddDate(0, -1, 0)
				inv.DueDate = day(1)
			},
		},
		{
			name: "subtotal plus tax off by more than tolerance",
			invoice: func(inv *models.Invoice) {
				inv.Subtotal = decimal.NewFromInt(40_000)
				inv.TaxAmount = decimal.NewFromInt(7_200)
			},
			wantErrs: []string{"Subtotal + Tax does not match Total Amount"},
		},
		{
			name: "subtotal plus tax within tolerance",
			invoice: func(inv *models.Invoice) {
				inv.Subtotal = decimal.NewFromInt(42_373)
				inv.TaxAmount = decimal.NewFromFloat(7_627.50)
			},
		},
		{
			name: "breakdown absent skips mismatch check",
			invoice: func(inv *models.Invoice) {
				inv.Subtotal = decimal.Zero
				inv.TaxAmount = decimal.Zero
			},
		},
		{
			name: "amount over 30 percent of revenue",
			invoice: func(inv *models.Invoice) {
				inv.TotalAmount = decimal.NewFromInt(300_001)
			},
			wantErrs: []string{"Invoice amount exceeds 30% of annual revenue"},
		},
		{
			name: "amount exactly at 30 percent passes",
			invoice: func(inv *models.Invoice) {
				inv.TotalAmount = decimal.NewFromInt(300_000)
			},
		},
		{
			name: "missing buyer tax id",
			invoice: func(inv *models.Invoice) {
				inv.BuyerTaxID = "   "
			},
			wantErrs: []string{"Buyer GSTIN is required for financing"},
		},
		{
			name: "multiple failures are all reported",
			invoice: func(inv *models.Invoice) {
				inv.TotalAmount = decimal.Zero
				inv.DueDate = inv.IssueDate
				inv.BuyerTaxID = ""
			},
			wantErrs: []string{
				"Invoice amount must be greater than zero",
				"Due date must be after issue date",
				"Buyer GSTIN is required for financing",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			if tt.invoice != nil {
				tt.invoice(inv)
			}

			result := newTestValidationEngine().Validate(inv, business)

			if result.IsValid != (len(tt.wantErrs) == 0) {
				t.Errorf("IsValid = %v, errors = %v", result.IsValid, result.Errors)
			}
			if len(result.Errors) != len(tt.wantErrs) {
				t.Fatalf("Errors = %v, want %v", result.Errors, tt.wantErrs)
			}
			for i := range tt.wantErrs {
				if result.Errors[i] != tt.wantErrs[i] {
					t.Errorf("Errors[%d] = %q, want %q", i, result.Errors[i], tt.wantErrs[i])
				}
			}
		})
	}
}

func TestValidatePlatformCeiling(t *testing.T) {
	engine := newTestValidationEngine()
	business := &models.Business{AnnualRevenue: decimal.NewFromInt(100_000_000)}

	inv := &models.Invoice{
		TotalAmount: decimal.NewFromInt(5_000_001),
		IssueDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		BuyerTaxID:  "29ABCDE1234F1Z5",
	}

	result := engine.Validate(inv, business)
	if result.IsValid {
		t.Fatal("invoice over the platform ceiling validated")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Invoice amount exceeds platform limit" {
		t.Errorf("Errors = %v", result.Errors)
	}

	inv.TotalAmount = decimal.NewFromInt(5_000_000)
	result = engine.Validate(inv, business)
	if !result.IsValid {
		t.Errorf("invoice at the ceiling rejected: %v", result.Errors)
	}
}
