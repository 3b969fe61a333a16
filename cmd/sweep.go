package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"invofin/internal/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Write off approved invoices past the default grace period",
	Long: `Scan every approved invoice and mark as defaulted those still
unpaid more than 30 days past their due date. Defaulted invoices record
the advanced amount as the platform's loss.

Intended to run on a schedule (e.g. a daily cron job).`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sweep")

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

	defaulted, err := pipeline.SweepDefaults(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("default sweep failed after %d write-offs: %w", defaulted, err)
	}

	log.Info().
		Int("defaulted", defaulted).
		Msg("Default sweep finished")

	fmt.Printf("Defaulted invoices: %d\n", defaulted)
	return nil
}
