package financing

import (
	"errors"
	"fmt"
)

// Pipeline errors. Rule outcomes (fraud, invalid, high risk) are modeled
// terminal states, never errors; only collaborator failures and contract
// violations surface here.
var (
	// ErrLookupFailed is returned when the invoice store cannot answer a
	// fraud-screen lookup. Screening is mandatory and ordered first, so
	// the whole submission fails rather than silently skipping it.
	ErrLookupFailed = errors.New("invoice lookup failed")

	// ErrSaveFailed is returned when persisting a decision checkpoint fails.
	ErrSaveFailed = errors.New("invoice save failed")

	// ErrInvoiceNotFound is returned when a referenced invoice does not exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrBusinessNotFound is returned when no business profile exists for
	// the submitting user.
	ErrBusinessNotFound = errors.New("business profile not found")

	// ErrNotApproved is returned when a repayment operation targets an
	// invoice whose financing was never approved.
	ErrNotApproved = errors.New("invoice financing is not approved")
)

// PipelineError wraps errors with the operation and invoice they occurred on.
type PipelineError struct {
	// Op is the operation that failed (e.g., "Evaluate", "RecordPayment").
	Op string

	// InvoiceID identifies the submission being processed.
	InvoiceID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.InvoiceID != "" {
		return fmt.Sprintf("financing: %s failed for invoice %s: %v", e.Op, e.InvoiceID, e.Err)
	}
	return fmt.Sprintf("financing: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapPipelineError(op, invoiceID string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Op: op, InvoiceID: invoiceID, Err: err}
}
