package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"invofin/internal/extract"
	"invofin/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract invoice fields from a PDF using Document AI",
	Long: `Extract invoice fields from an uploaded PDF using the Google Cloud
Document AI invoice parser and print them as a submission JSON.

The output is a seed, not a decision: fill in the user and correct any
misread fields, then feed it to "invofin submit". The pipeline validates
the values itself and never trusts extraction confidence.

Required environment variables:
  GOOGLE_CLOUD_PROJECT        Google Cloud project ID
  DOCUMENT_AI_PROCESSOR_ID    Document AI invoice processor ID
  GOOGLE_CLOUD_LOCATION       Processing location (default: us)
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS`,
	Example: `  # Extract fields to stdout
  invofin extract invoice.pdf

  # Write a submission seed for a user
  invofin extract invoice.pdf --user usr_123 -o submission.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().String("user", "", "User ID to stamp into the submission seed")
	extractCmd.Flags().Duration("timeout", 2*time.Minute, "Processing timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	userID, _ := cmd.Flags().GetString("user")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	pdfPath := args[0]
	file, err := os.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	ctx, cancel := signalContext()
	defer cancel()

	extractor, err := extract.NewDocumentAIExtractor(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Document AI: %w", err)
	}
	if closer, ok := extractor.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	log.Info().
		Str("file", pdfPath).
		Dur("timeout", timeout).
		Msg("Starting invoice field extraction")

	extractCtx, extractCancel := context.WithTimeout(ctx, timeout)
	defer extractCancel()

	invoice, err := extractor.ExtractFields(extractCtx, file)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	sub := Submission{
		UserID:        userID,
		InvoiceNumber: invoice.InvoiceNumber,
		TotalAmount:   invoice.TotalAmount,
		Subtotal:      invoice.Subtotal,
		TaxAmount:     invoice.TaxAmount,
		BuyerName:     invoice.BuyerName,
		BuyerTaxID:    invoice.BuyerTaxID,
	}
	if !invoice.IssueDate.IsZero() {
		sub.IssueDate = invoice.IssueDate.Format("2006-01-02")
	}
	if !invoice.DueDate.IsZero() {
		sub.DueDate = invoice.DueDate.Format("2006-01-02")
	}

	log.Info().
		Str("invoice_number", sub.InvoiceNumber).
		Str("total_amount", sub.TotalAmount.String()).
		Msg("Extraction completed")

	return writeJSON(sub, outputPath)
}
