package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgercast/ledgercast/internal/cli"
	"github.com/ledgercast/ledgercast/internal/config"
	"github.com/ledgercast/ledgercast/internal/series"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Summarize stored transaction history",
		RunE:  runTransactions,
	}

	cmd.Flags().String("owner", "", "summarize a single owner (default: all owners)")

	return cmd
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	owners, err := resolveOwners(ctx, store, cmd)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions stored yet. Try: ledgercast seed"))
		return nil
	}

	asOf := time.Now().UTC()
	aggregator := series.NewAggregator(settings.LookbackDays)

	var b strings.Builder
	b.WriteString(cli.TitleStyle.Render("Transaction History"))
	b.WriteString("\n")

	for _, owner := range owners {
		count, err := store.GetTransactionCount(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to count transactions: %w", err)
		}
		earliest, err := store.GetEarliestTransactionDate(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to find earliest transaction: %w", err)
		}

		windowStart := asOf.AddDate(0, 0, -settings.LookbackDays)
		transactions, err := store.GetTransactionsByOwner(ctx, owner, windowStart, asOf)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		dailySeries, _ := aggregator.Aggregate(owner, transactions, asOf)

		rows := []string{
			fmt.Sprintf("Owner            %s", owner),
			fmt.Sprintf("Transactions     %d", count),
			fmt.Sprintf("Earliest         %s", earliest.Format("2006-01-02")),
			fmt.Sprintf("Days in window   %d", dailySeries.Len()),
			fmt.Sprintf("Total in window  %.2f", dailySeries.Sum()),
			fmt.Sprintf("Daily mean       %.2f", dailySeries.Mean()),
		}
		b.WriteString(cli.BoxStyle.Render(strings.Join(rows, "\n")))
		b.WriteString("\n")
	}

	fmt.Print(b.String())
	return nil
}
