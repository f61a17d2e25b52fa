package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgercast/ledgercast/internal/cli"
	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/service"
	"github.com/ledgercast/ledgercast/internal/synthetic"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with synthetic transactions",
		Long: `Seed generates a deterministic synthetic transaction history for an
owner, with weekly spending patterns and occasional quiet days. Useful for
demos and for exercising the training pipeline without real data.`,
		RunE: runSeed,
	}

	cmd.Flags().String("owner", "demo", "owner ID to seed")
	cmd.Flags().Int("days", 120, "days of history to generate")
	cmd.Flags().Float64("mean-per-day", 2.5, "average transactions per day")
	cmd.Flags().Int64("seed", 42, "random seed")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	owner, _ := cmd.Flags().GetString("owner")
	days, _ := cmd.Flags().GetInt("days")
	meanPerDay, _ := cmd.Flags().GetFloat64("mean-per-day")
	seed, _ := cmd.Flags().GetInt64("seed")

	transactions := synthetic.Generate(synthetic.Config{
		OwnerID:    owner,
		Start:      time.Now().UTC().AddDate(0, 0, -days),
		Days:       days,
		MeanPerDay: meanPerDay,
		Seed:       seed,
	})

	// A daemon sweep may hold the write lock; retry the batch insert
	// rather than failing the whole seed.
	err = common.WithRetry(ctx, func() error {
		return store.SaveTransactions(ctx, transactions)
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 250 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Seeded %d transactions over %d days for owner %s", len(transactions), days, owner)))
	return nil
}
