package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"invofin/internal/logger"
	"invofin/pkg/models"
)

// MaxDocumentSizeBytes is the maximum document size for synchronous
// Document AI processing (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// DocumentAIExtractor implements FieldExtractor using Google Document AI.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates an extractor with credentials and
// configuration from the environment.
func NewDocumentAIExtractor(ctx context.Context) (FieldExtractor, error) {
	const op = "NewDocumentAIExtractor"

	config := Config{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, wrapExtractionError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, wrapExtractionError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	} else {
		return nil, wrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, wrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIExtractorWithConfig creates an extractor with an explicit
// config and client (for testing).
func NewDocumentAIExtractorWithConfig(config Config, client *documentai.DocumentProcessorClient) FieldExtractor {
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// ExtractFields runs the invoice parser over the document and maps the
// extracted entities onto an invoice seed.
func (e *DocumentAIExtractor) ExtractFields(ctx context.Context, document io.Reader) (*models.Invoice, error) {
	const op = "ExtractFields"

	data, err := io.ReadAll(document)
	if err != nil {
		return nil, wrapExtractionError(op, err, "failed to read document data")
	}

	if len(data) > MaxDocumentSizeBytes {
		return nil, wrapExtractionError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return nil, wrapExtractionError(op, ErrInvalidDocument, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := e.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, e.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, wrapExtractionError(op, ErrExtractionFailed, "no document in response")
	}

	return e.mapEntities(resp.Document), nil
}

// processorName constructs the full processor resource name.
func (e *DocumentAIExtractor) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to extraction errors.
func (e *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "NOT_FOUND"):
		return wrapExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", e.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return wrapExtractionError(op, ErrInvalidDocument, "document format not supported or corrupted")
	case strings.Contains(errStr, "context deadline exceeded"):
		return wrapExtractionError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return wrapExtractionError(op, ErrExtractionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// mapEntities converts Document AI entities onto the invoice seed. The
// uploading business is the supplier, so the buyer fields come from the
// receiver entities.
func (e *DocumentAIExtractor) mapEntities(doc *documentaipb.Document) *models.Invoice {
	invoice := &models.Invoice{}

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		e.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "invoice_id", "invoice_number":
			invoice.InvoiceNumber = value
		case "receiver_name", "buyer_name", "customer_name":
			invoice.BuyerName = value
		case "receiver_tax_id", "buyer_tax_id":
			invoice.BuyerTaxID = value
		case "invoice_date":
			if date, err := extractDate(entity); err == nil {
				invoice.IssueDate = date
			}
		case "due_date":
			if date, err := extractDate(entity); err == nil {
				invoice.DueDate = date
			}
		case "net_amount", "subtotal_amount":
			if amount, err := extractAmount(entity); err == nil {
				invoice.Subtotal = amount
			} else {
				e.log.Warn().Err(err).Str("raw_value", value).Msg("Failed to extract subtotal")
			}
		case "total_tax_amount", "vat_amount":
			if amount, err := extractAmount(entity); err == nil {
				invoice.TaxAmount = amount
			} else {
				e.log.Warn().Err(err).Str("raw_value", value).Msg("Failed to extract tax amount")
			}
		case "total_amount", "gross_amount":
			if amount, err := extractAmount(entity); err == nil {
				invoice.TotalAmount = amount
			} else {
				e.log.Warn().Err(err).Str("raw_value", value).Msg("Failed to extract total amount")
			}
		}
	}

	// Fill the total from its parts when the parser missed it.
	if invoice.TotalAmount.IsZero() && !invoice.Subtotal.IsZero() {
		invoice.TotalAmount = invoice.Subtotal.Add(invoice.TaxAmount)
	}

	e.log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Str("total_amount", invoice.TotalAmount.String()).
		Str("buyer", invoice.BuyerName).
		Msg("Document AI extraction completed")

	return invoice
}

// extractDate reads a date entity, preferring the normalized value.
func extractDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if entity.NormalizedValue != nil {
		if dv := entity.NormalizedValue.GetDateValue(); dv != nil {
			return time.Date(int(dv.Year), time.Month(dv.Month), int(dv.Day), 0, 0, 0, 0, time.UTC), nil
		}
	}

	dateStr := strings.TrimSpace(entity.MentionText)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}

	formats := []string{
		"2006-01-02",
		"02.01.2006",
		"01/02/2006",
		"2006/01/02",
		"02-01-2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// extractAmount reads a monetary entity, preferring the normalized value.
func extractAmount(entity *documentaipb.Document_Entity) (decimal.Decimal, error) {
	if entity.NormalizedValue != nil {
		if mv := entity.NormalizedValue.GetMoneyValue(); mv != nil {
			units := decimal.NewFromInt(mv.Units)
			nanos := decimal.New(int64(mv.Nanos), -9)
			return units.Add(nanos), nil
		}
	}

	amountStr := strings.TrimSpace(entity.MentionText)
	if amountStr == "" {
		return decimal.Zero, fmt.Errorf("empty amount value")
	}

	cleaned := strings.NewReplacer(" ", "", ",", "", "$", "", "₹", "", "€", "").Replace(amountStr)
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s", amountStr)
	}
	return amount, nil
}

// Close closes the underlying Document AI client.
func (e *DocumentAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
