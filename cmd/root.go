package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"invofin/internal/audit"
	"invofin/internal/config"
	"invofin/internal/financing"
	"invofin/internal/logger"
	"invofin/internal/store"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invofin",
	Short: "Invoice financing decision pipeline",
	Long: `invofin runs an invoice-financing workflow: businesses upload
invoices and the platform autonomously decides whether to advance funds,
how much, and under what risk classification, while screening for fraud
and tracking repayment or default.

Submissions pass through a deterministic, short-circuiting pipeline:
fraud screen, validation, credit scoring, risk classification, and the
financing decision. Every automated decision carries explanatory notes.`,
	Version: version,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// openStore connects to the configured database. Commands that persist
// invoices require DATABASE_URL; extraction runs without it.
func openStore() (*store.GormStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	}
	return store.Open(cfg.DatabaseURL, logger.WithComponent("store"))
}

// buildPipeline wires the decision pipeline against the given store,
// with audit events going to both the log and the database.
func buildPipeline(s *store.GormStore) (*financing.Pipeline, error) {
	dbSink, err := audit.NewGormSink(s.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit sink: %w", err)
	}
	return financing.NewPipeline(financing.PipelineDeps{
		Invoices: s,
		Audit:    audit.NewMultiSink(audit.NewLogSink(), dbSink),
		Notifier: audit.NewLogNotifier(),
	}), nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			l := logger.WithComponent("cmd")
			l.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
