package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invofin/internal/financing"
	"invofin/pkg/models"
)

// GormStore is the Postgres-backed invoice and business store.
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to Postgres with the given DSN and migrates the schema.
func Open(dsn string, log zerolog.Logger) (*GormStore, error) {
	const op = "Open"

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := db.AutoMigrate(&models.Invoice{}, &models.Business{}); err != nil {
		return nil, fmt.Errorf("%s: failed to migrate schema: %w", op, err)
	}

	log.Info().Msg("Connected to database")
	return &GormStore{db: db, log: log}, nil
}

// NewGormStore wraps an existing GORM handle (for tests).
func NewGormStore(db *gorm.DB, log zerolog.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

var _ financing.InvoiceStore = (*GormStore)(nil)
var _ financing.BusinessStore = (*GormStore)(nil)

// DB exposes the underlying handle for sinks sharing the connection.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Save upserts the invoice.
func (s *GormStore) Save(ctx context.Context, invoice *models.Invoice) error {
	return s.db.WithContext(ctx).Save(invoice).Error
}

// FindByID returns the invoice with the given ID.
func (s *GormStore) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, financing.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindDuplicate returns another invoice of the business with the same
// invoice number, or nil.
func (s *GormStore) FindDuplicate(ctx context.Context, businessID, invoiceNumber, excludeID string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND invoice_number = ? AND id <> ?", businessID, invoiceNumber, excludeID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountRecent counts invoices of the business created at or after since.
func (s *GormStore) CountRecent(ctx context.Context, businessID string, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("business_id = ? AND created_at >= ?", businessID, since).
		Count(&count).Error
	return int(count), err
}

// CountByBuyer counts invoices of the business issued to the buyer,
// excluding the invoice under evaluation.
func (s *GormStore) CountByBuyer(ctx context.Context, businessID, buyerName, excludeID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("business_id = ? AND buyer_name = ? AND id <> ?", businessID, buyerName, excludeID).
		Count(&count).Error
	return int(count), err
}

// FindAllApproved returns every invoice whose financing is approved.
func (s *GormStore) FindAllApproved(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("financing_status = ?", models.FinancingApproved).
		Order("created_at asc").
		Find(&invoices).Error
	return invoices, err
}

// SaveBusiness upserts the business profile.
func (s *GormStore) SaveBusiness(ctx context.Context, business *models.Business) error {
	return s.db.WithContext(ctx).Save(business).Error
}

// FindByUser returns the business profile owned by the given user.
func (s *GormStore) FindByUser(ctx context.Context, userID string) (*models.Business, error) {
	var biz models.Business
	err := s.db.WithContext(ctx).First(&biz, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, financing.ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	return &biz, nil
}
