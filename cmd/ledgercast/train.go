package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/config"
	"github.com/ledgercast/ledgercast/internal/series"
	"github.com/ledgercast/ledgercast/internal/storage"
	"github.com/ledgercast/ledgercast/internal/trainer"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train forecast models offline",
		Long: `Train fits a sequence model on each owner's daily spend series and
publishes a new versioned artifact. Owners without enough history are
skipped; the forecast path keeps serving the statistical method for them.`,
		RunE: runTrain,
	}

	cmd.Flags().String("owner", "", "train a single owner (default: all owners)")
	cmd.Flags().Int("epochs", 0, "maximum training epochs (default: 200)")
	cmd.Flags().Float64("learning-rate", 0, "SGD learning rate (default: 0.05)")
	cmd.Flags().Int64("seed", 1, "weight initialization seed")
	cmd.Flags().Bool("progress", true, "show a progress bar per owner")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trainCfg := trainer.DefaultConfig()
	trainCfg.WindowLength = settings.WindowLength
	trainCfg.MinRequiredDays = settings.MinRequiredDays
	trainCfg.MaxEpochs = settings.MaxEpochs
	trainCfg.LearningRate = settings.LearningRate
	if epochs, _ := cmd.Flags().GetInt("epochs"); epochs > 0 {
		trainCfg.MaxEpochs = epochs
	}
	if lr, _ := cmd.Flags().GetFloat64("learning-rate"); lr > 0 {
		trainCfg.LearningRate = lr
	}
	trainCfg.Seed, _ = cmd.Flags().GetInt64("seed")

	owners, err := resolveOwners(ctx, store, cmd)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		slog.Info("No owners with transaction history, nothing to train")
		return nil
	}

	showProgress, _ := cmd.Flags().GetBool("progress")
	asOf := time.Now().UTC()

	trained, skipped := 0, 0
	for _, owner := range owners {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := trainOwner(ctx, store, trainCfg, settings.LookbackDays, owner, asOf, showProgress); err != nil {
			if errors.Is(err, common.ErrInsufficientData) {
				slog.Info("Skipping owner with insufficient history", "owner", owner, "reason", err)
				skipped++
				continue
			}
			if errors.Is(err, common.ErrTrainingDivergence) {
				slog.Warn("Training diverged, previous artifact kept", "owner", owner, "error", err)
				skipped++
				continue
			}
			return fmt.Errorf("training failed for owner %s: %w", owner, err)
		}
		trained++
	}

	slog.Info("Training sweep complete", "trained", trained, "skipped", skipped)
	return nil
}

// trainOwner aggregates one owner's history and runs a training job.
func trainOwner(ctx context.Context, store *storage.SQLiteStorage, cfg trainer.Config, lookbackDays int, owner string, asOf time.Time, showProgress bool) error {
	windowStart := asOf.AddDate(0, 0, -lookbackDays)
	transactions, err := store.GetTransactionsByOwner(ctx, owner, windowStart, asOf)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	dailySeries, quality := series.NewAggregator(lookbackDays).Aggregate(owner, transactions, asOf)
	if quality.Skipped() > 0 {
		slog.Info("Data quality issues in training input",
			"owner", owner,
			"skipped", quality.Skipped(),
			"total", quality.TotalTransactions)
	}

	t := trainer.New(store, cfg)

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(cfg.MaxEpochs,
			progressbar.OptionSetDescription(fmt.Sprintf("Training %s", owner)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		t.OnProgress(func(epoch, _ int, valError float64) {
			_ = bar.Set(epoch)
			bar.Describe(fmt.Sprintf("Training %s (val %.2f)", owner, valError))
		})
	}

	artifact, err := t.Train(ctx, dailySeries)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	// A fresh artifact supersedes any pending retrain request.
	if err := store.ClearRetrainRequested(ctx, owner); err != nil {
		slog.Warn("Failed to clear retrain request", "owner", owner, "error", err)
	}

	slog.Info("Published artifact",
		"owner", owner,
		"validation_error", artifact.ValidationError,
		"data_days", artifact.DataDays)
	return nil
}

func resolveOwners(ctx context.Context, store *storage.SQLiteStorage, cmd *cobra.Command) ([]string, error) {
	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		return []string{owner}, nil
	}
	owners, err := store.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}
