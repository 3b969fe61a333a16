package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"invofin/internal/logger"
	"invofin/pkg/models"
)

var businessCmd = &cobra.Command{
	Use:   "business",
	Short: "Register a business profile",
	Long: `Register the business profile used to underwrite a user's
submissions. Annual revenue and years in operation drive the credit
score and the exposure caps, so they must be accurate.`,
	Example: `  invofin business --user usr_123 --name "Acme Traders" \
    --revenue 12000000 --years 6`,
	Args: cobra.NoArgs,
	RunE: runBusiness,
}

func init() {
	rootCmd.AddCommand(businessCmd)

	businessCmd.Flags().String("user", "", "Owning user ID (required)")
	businessCmd.Flags().String("name", "", "Registered business name (required)")
	businessCmd.Flags().String("revenue", "0", "Annual revenue")
	businessCmd.Flags().Int("years", 0, "Years in operation")
	businessCmd.MarkFlagRequired("user")
	businessCmd.MarkFlagRequired("name")
}

func runBusiness(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("business")

	userID, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	revenueStr, _ := cmd.Flags().GetString("revenue")
	years, _ := cmd.Flags().GetInt("years")

	revenue, err := decimal.NewFromString(revenueStr)
	if err != nil {
		return fmt.Errorf("invalid --revenue: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	now := time.Now()
	business := &models.Business{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             name,
		AnnualRevenue:    revenue,
		YearsInOperation: years,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.SaveBusiness(ctx, business); err != nil {
		return fmt.Errorf("failed to save business profile: %w", err)
	}

	log.Info().
		Str("business_id", business.ID).
		Str("user_id", userID).
		Msg("Business profile registered")

	return writeJSON(business, "")
}
