// Package extract supplies initial invoice field values from uploaded
// documents using Google Cloud Document AI's invoice parser. It sits
// upstream of the decision pipeline: the pipeline never sees extraction
// confidence, only the extracted values, which it validates itself.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID
//   - GOOGLE_CLOUD_LOCATION: Processing location (e.g., "us", "eu")
//   - DOCUMENT_AI_PROCESSOR_ID: Document AI invoice processor ID
package extract

import (
	"context"
	"io"
	"time"

	"invofin/pkg/models"
)

// FieldExtractor extracts invoice field values from a document. The
// returned invoice carries only commercial and party fields; identity
// and pipeline fields are filled in by the caller.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, document io.Reader) (*models.Invoice, error)
}

// Config holds Document AI processing configuration.
type Config struct {
	// ProjectID is the Google Cloud project where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu"). Should
	// match where the processor was created.
	Location string

	// ProcessorID is the Document AI invoice processor ID.
	ProcessorID string

	// Timeout is the maximum time to wait for processing.
	// Default: 60 seconds.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Location: "us",
		Timeout:  60 * time.Second,
	}
}
