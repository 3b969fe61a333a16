package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"invofin/internal/financing"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

var submitCmd = &cobra.Command{
	Use:   "submit [submission-file]",
	Short: "Submit an invoice and run the financing decision pipeline",
	Long: `Submit an invoice for financing. The submission JSON names the
uploading user and the invoice fields; the business profile is resolved
from the user, the invoice is persisted with status "uploaded", and the
decision pipeline runs synchronously to its terminal outcome.

The command prints the decided invoice and the pipeline run report,
including which stages executed and every explanatory note.`,
	Example: `  # Decide a submission and print the outcome
  invofin submit submission.json

  # Save the decided invoice to a file
  invofin submit submission.json -o decision.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

// Submission is the JSON shape of one invoice upload.
type Submission struct {
	UserID        string          `json:"userId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	IssueDate     string          `json:"issueDate"` // YYYY-MM-DD
	DueDate       string          `json:"dueDate"`   // YYYY-MM-DD
	BuyerName     string          `json:"buyerName"`
	BuyerTaxID    string          `json:"buyerTaxId"`
}

// SubmitOutput is the JSON printed after a pipeline run.
type SubmitOutput struct {
	Invoice *models.Invoice      `json:"invoice"`
	Report  *financing.RunReport `json:"report"`
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("submit")

	outputPath, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read submission file: %w", err)
	}

	var sub Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("failed to parse submission file: %w", err)
	}
	if sub.UserID == "" {
		return fmt.Errorf("submission is missing userId")
	}

	issueDate, err := time.Parse("2006-01-02", sub.IssueDate)
	if err != nil {
		return fmt.Errorf("invalid issueDate: %w", err)
	}
	dueDate, err := time.Parse("2006-01-02", sub.DueDate)
	if err != nil {
		return fmt.Errorf("invalid dueDate: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(s)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	business, err := s.FindByUser(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve business profile: %w", err)
	}

	now := time.Now()
	invoice := &models.Invoice{
		ID:            uuid.NewString(),
		BusinessID:    business.ID,
		InvoiceNumber: sub.InvoiceNumber,
		TotalAmount:   sub.TotalAmount,
		Subtotal:      sub.Subtotal,
		TaxAmount:     sub.TaxAmount,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		BuyerName:     sub.BuyerName,
		BuyerTaxID:    sub.BuyerTaxID,
		Status:        models.StatusUploaded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Persist the uploaded state first so the fraud screen's frequency
	// window counts this submission.
	if err := s.Save(ctx, invoice); err != nil {
		return fmt.Errorf("failed to persist submission: %w", err)
	}

	log.Info().
		Str("invoice_id", invoice.ID).
		Str("invoice_number", invoice.InvoiceNumber).
		Str("business_id", business.ID).
		Msg("Submission persisted, running decision pipeline")

	report, err := pipeline.Evaluate(ctx, invoice, business)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	log.Info().
		Str("invoice_id", invoice.ID).
		Str("outcome", string(report.Outcome)).
		Msg("Decision complete")

	return writeJSON(SubmitOutput{Invoice: invoice, Report: report}, outputPath)
}

// writeJSON pretty-prints v to the output path, or stdout when empty.
func writeJSON(v interface{}, outputPath string) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	if _, err := os.Stdout.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
