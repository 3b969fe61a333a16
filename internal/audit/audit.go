// Package audit implements the audit and notification sinks the
// pipeline emits terminal outcomes to. Delivery is fire-and-forget:
// the pipeline logs sink failures and never rolls back a decision.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invofin/internal/financing"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

// Event is the persisted form of a pipeline audit event.
type Event struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Action    string    `json:"action" gorm:"index"`
	EntityID  string    `json:"entityId" gorm:"index"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-backed audit sink.
func NewLogSink() *LogSink {
	return &LogSink{log: logger.WithComponent("audit")}
}

var _ financing.AuditSink = (*LogSink)(nil)

// Record logs the audit event.
func (s *LogSink) Record(ctx context.Context, event financing.AuditEvent) error {
	s.log.Info().
		Str("action", event.Action).
		Str("entity_id", event.EntityID).
		Str("message", event.Message).
		Msg("Audit event")
	return nil
}

// GormSink persists audit events to the database.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink creates a database-backed audit sink and migrates its table.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &GormSink{db: db}, nil
}

var _ financing.AuditSink = (*GormSink)(nil)

// Record persists the audit event.
func (s *GormSink) Record(ctx context.Context, event financing.AuditEvent) error {
	return s.db.WithContext(ctx).Create(&Event{
		ID:        uuid.NewString(),
		Action:    event.Action,
		EntityID:  event.EntityID,
		Message:   event.Message,
		CreatedAt: time.Now(),
	}).Error
}

// MultiSink fans one event out to several sinks. The first failure is
// returned after every sink has been tried.
type MultiSink struct {
	sinks []financing.AuditSink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...financing.AuditSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

var _ financing.AuditSink = (*MultiSink)(nil)

// Record delivers the event to every sink.
func (s *MultiSink) Record(ctx context.Context, event financing.AuditEvent) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogNotifier delivers approval notifications to the structured log.
// A production deployment would swap in an email or webhook notifier.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notifier")}
}

var _ financing.Notifier = (*LogNotifier)(nil)

// NotifyApproval logs the approved amount for the invoice owner.
func (n *LogNotifier) NotifyApproval(ctx context.Context, invoice *models.Invoice, amount decimal.Decimal) error {
	n.log.Info().
		Str("invoice_id", invoice.ID).
		Str("business_id", invoice.BusinessID).
		Str("approved_amount", amount.String()).
		Msg("Invoice financing approved")
	return nil
}
