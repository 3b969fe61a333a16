package financing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invofin/pkg/models"
)

func TestRecordPaymentTiming(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	tracker := NewRepaymentTracker()

	tests := []struct {
		name     string
		paid     time.Time
		wantNote string
	}{
		{"before due date", due.AddDate(0, 0, -5), "Repaid on time"},
		{"on the due date", due, "Repaid on time"},
		{"after due date", due.AddDate(0, 0, 1), "Repaid late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Invoice{ID: "inv-1", DueDate: due}

			result := tracker.RecordPayment(inv, tt.paid)
			if !result.Changed {
				t.Fatal("Changed = false")
			}
			if result.Status != models.RepaymentPaid {
				t.Errorf("Status = %q, want paid", result.Status)
			}
			if result.RepaymentDate == nil || !result.RepaymentDate.Equal(tt.paid) {
				t.Errorf("RepaymentDate = %v, want %v", result.RepaymentDate, tt.paid)
			}
			if len(result.Notes) != 1 || result.Notes[0] != tt.wantNote {
				t.Errorf("Notes = %v, want [%s]", result.Notes, tt.wantNote)
			}
		})
	}
}

func TestCheckDefault(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	grace := due.AddDate(0, 0, 30)
	tracker := NewRepaymentTracker()

	tests := []struct {
		name        string
		status      models.RepaymentStatus
		now         time.Time
		wantChanged bool
	}{
		{"pending inside grace", models.RepaymentPending, due.AddDate(0, 0, 10), false},
		{"pending exactly at grace boundary", models.RepaymentPending, grace, false},
		{"pending past grace", models.RepaymentPending, grace.Add(time.Second), true},
		{"already paid past grace", models.RepaymentPaid, grace.AddDate(0, 0, 30), false},
		{"already defaulted", models.RepaymentDefaulted, grace.AddDate(0, 0, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Invoice{
				ID:              "inv-1",
				DueDate:         due,
				RepaymentStatus: tt.status,
				FinancedAmount:  decimal.NewFromInt(80_000),
			}

			result := tracker.CheckDefault(inv, tt.now)
			if result.Changed != tt.wantChanged {
				t.Fatalf("Changed = %v, want %v", result.Changed, tt.wantChanged)
			}
			if !tt.wantChanged {
				return
			}
			if result.Status != models.RepaymentDefaulted {
				t.Errorf("Status = %q, want defaulted", result.Status)
			}
			if !result.DefaultLoss.Equal(inv.FinancedAmount) {
				t.Errorf("DefaultLoss = %s, want %s", result.DefaultLoss, inv.FinancedAmount)
			}
			if len(result.Notes) != 1 || result.Notes[0] != "Invoice defaulted after grace period" {
				t.Errorf("Notes = %v", result.Notes)
			}
		})
	}
}

// Running the default check twice over the same invoice must not change
// it again once the state moved off pending.
func TestCheckDefaultIdempotent(t *testing.T) {
	tracker := NewRepaymentTracker()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	inv := &models.Invoice{
		ID:              "inv-1",
		DueDate:         now.AddDate(0, 0, -60),
		RepaymentStatus: models.RepaymentPending,
		FinancedAmount:  decimal.NewFromInt(80_000),
	}

	first := tracker.CheckDefault(inv, now)
	if !first.Changed {
		t.Fatal("first check did not default the invoice")
	}
	inv.RepaymentStatus = first.Status
	inv.DefaultLoss = first.DefaultLoss

	second := tracker.CheckDefault(inv, now)
	if second.Changed {
		t.Error("second check changed an already defaulted invoice")
	}
}
