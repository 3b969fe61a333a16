package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrInvalidDocument is returned when the provided data is not a
	// valid PDF document or cannot be processed by Document AI.
	ErrInvalidDocument = errors.New("invalid or corrupted document")

	// ErrExtractionFailed is returned when Document AI processing fails.
	ErrExtractionFailed = errors.New("document field extraction failed")

	// ErrMissingCredentials is returned when Google Cloud credentials are
	// not configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	// ErrInvalidConfiguration is returned when the Document AI
	// configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	// ErrProcessorNotFound is returned when the configured processor
	// cannot be found or accessed.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrDocumentTooLarge is returned when the document exceeds the
	// synchronous processing size limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")
)

// ExtractionError wraps errors with context about the failed extraction.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractFields").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return err
	}
	return &ExtractionError{Op: op, Err: err, Details: details}
}
