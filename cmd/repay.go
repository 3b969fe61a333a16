package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"invofin/internal/logger"
)

var repayCmd = &cobra.Command{
	Use:   "repay [invoice-id]",
	Short: "Record repayment of a financed invoice",
	Long: `Record that the buyer settled a financed invoice. Only invoices
whose financing was approved can be repaid; the invoice is marked paid
with a note saying whether settlement was on time or late.`,
	Example: `  # Record a repayment dated today
  invofin repay 7f9c2c1e-...

  # Record a backdated repayment
  invofin repay 7f9c2c1e-... --date 2026-08-15`,
	Args: cobra.ExactArgs(1),
	RunE: runRepay,
}

func init() {
	rootCmd.AddCommand(repayCmd)

	repayCmd.Flags().String("date", "", "Payment date as YYYY-MM-DD (default: today)")
	repayCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runRepay(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("repay")

	dateStr, _ := cmd.Flags().GetString("date")
	outputPath, _ := cmd.Flags().GetString("output")

	paymentDate := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		paymentDate = parsed
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

	invoice, err := s.FindByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := pipeline.RecordPayment(ctx, invoice, paymentDate); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	log.Info().
		Str("invoice_id", invoice.ID).
		Str("repayment_status", string(invoice.RepaymentStatus)).
		Time("payment_date", paymentDate).
		Msg("Repayment recorded")

	return writeJSON(invoice, outputPath)
}
