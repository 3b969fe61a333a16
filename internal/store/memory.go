// Package store provides the durable record stores consumed by the
// decision pipeline: an in-memory implementation for tests and
// single-shot runs, and a Postgres/GORM implementation for deployments.
package store

import (
	"context"
	"sync"
	"time"

	"invofin/internal/financing"
	"invofin/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory invoice and business store.
type MemoryStore struct {
	mu         sync.RWMutex
	invoices   map[string]models.Invoice
	businesses map[string]models.Business
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices:   make(map[string]models.Invoice),
		businesses: make(map[string]models.Business),
	}
}

var _ financing.InvoiceStore = (*MemoryStore)(nil)
var _ financing.BusinessStore = (*MemoryStore)(nil)

// Save stores a copy of the invoice keyed by ID.
func (s *MemoryStore) Save(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = *invoice
	return nil
}

// FindByID returns the invoice with the given ID.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, financing.ErrInvoiceNotFound
	}
	return &inv, nil
}

// FindDuplicate returns another invoice of the business with the same
// invoice number, or nil.
func (s *MemoryStore) FindDuplicate(ctx context.Context, businessID, invoiceNumber, excludeID string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.ID == excludeID {
			continue
		}
		if inv.BusinessID == businessID && inv.InvoiceNumber == invoiceNumber {
			dup := inv
			return &dup, nil
		}
	}
	return nil, nil
}

// CountRecent counts invoices of the business created at or after since.
func (s *MemoryStore) CountRecent(ctx context.Context, businessID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inv := range s.invoices {
		if inv.BusinessID == businessID && !inv.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountByBuyer counts invoices of the business issued to the buyer,
// excluding the invoice under evaluation.
func (s *MemoryStore) CountByBuyer(ctx context.Context, businessID, buyerName, excludeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inv := range s.invoices {
		if inv.ID == excludeID {
			continue
		}
		if inv.BusinessID == businessID && inv.BuyerName == buyerName {
			count++
		}
	}
	return count, nil
}

// FindAllApproved returns every invoice whose financing is approved.
func (s *MemoryStore) FindAllApproved(ctx context.Context) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var approved []models.Invoice
	for _, inv := range s.invoices {
		if inv.FinancingStatus == models.FinancingApproved {
			approved = append(approved, inv)
		}
	}
	return approved, nil
}

// SaveBusiness stores a copy of the business profile.
func (s *MemoryStore) SaveBusiness(ctx context.Context, business *models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[business.ID] = *business
	return nil
}

// FindByUser returns the business profile owned by the given user.
func (s *MemoryStore) FindByUser(ctx context.Context, userID string) (*models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, biz := range s.businesses {
		if biz.UserID == userID {
			b := biz
			return &b, nil
		}
	}
	return nil, financing.ErrBusinessNotFound
}
