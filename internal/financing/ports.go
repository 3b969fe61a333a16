package financing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"invofin/pkg/models"
)

// InvoiceLookup is the read-only view of previously stored invoices that
// the fraud screen consults. Implementations must answer against a
// consistent-enough snapshot; two near-simultaneous duplicate submissions
// for the same business are an accepted eventual-consistency gap (first
// to persist wins "non-duplicate").
type InvoiceLookup interface {
	// FindDuplicate returns another stored invoice of the same business
	// carrying the same invoice number, or nil if none exists.
	FindDuplicate(ctx context.Context, businessID, invoiceNumber, excludeID string) (*models.Invoice, error)

	// CountRecent returns how many invoices the business submitted at or
	// after the given timestamp, including the submission under evaluation
	// if it has already been persisted.
	CountRecent(ctx context.Context, businessID string, since time.Time) (int, error)

	// CountByBuyer returns how many prior invoices the business issued to
	// the given buyer name, excluding the invoice under evaluation.
	CountByBuyer(ctx context.Context, businessID, buyerName, excludeID string) (int, error)
}

// InvoiceStore is the durable record store for invoices. The pipeline
// persists rollups only at the short-circuit boundaries, never a
// partially computed step.
type InvoiceStore interface {
	InvoiceLookup

	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	FindAllApproved(ctx context.Context) ([]models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error
}

// BusinessStore resolves the financing counterpart profile. Read-only
// from the pipeline's perspective.
type BusinessStore interface {
	FindByUser(ctx context.Context, userID string) (*models.Business, error)
}

// AuditEvent is emitted once per terminal pipeline outcome.
type AuditEvent struct {
	Action   string
	EntityID string
	Message  string
}

// AuditSink receives audit events. Delivery is fire-and-forget from the
// pipeline's viewpoint; a sink failure never rolls back a decision.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// Notifier delivers the approval notification carrying the financed
// amount. Same fire-and-forget contract as AuditSink.
type Notifier interface {
	NotifyApproval(ctx context.Context, invoice *models.Invoice, amount decimal.Decimal) error
}
