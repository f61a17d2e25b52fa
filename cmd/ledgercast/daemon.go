package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ledgercast/ledgercast/internal/common"
	"github.com/ledgercast/ledgercast/internal/config"
	"github.com/ledgercast/ledgercast/internal/storage"
	"github.com/ledgercast/ledgercast/internal/trainer"
)

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled retraining in the background",
		Long: `Daemon runs the training sweep on a cron schedule. Each sweep
retrains every owner, starting with those flagged for retraining after a
corrupt artifact was detected at forecast time.`,
		RunE: runDaemon,
	}

	cmd.Flags().String("schedule", "0 3 * * *", "cron schedule for the training sweep")
	cmd.Flags().Bool("immediate", false, "run one sweep immediately on startup")

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
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

	sweep := func() {
		if err := runSweep(ctx, store, trainCfg, settings.LookbackDays); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			common.LogError(err, "Training sweep failed", nil)
		}
	}

	if immediate, _ := cmd.Flags().GetBool("immediate"); immediate {
		sweep()
	}

	schedule, _ := cmd.Flags().GetString("schedule")
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, sweep); err != nil {
		return common.NewUserError("Invalid cron schedule. Try the default: 0 3 * * *", err)
	}

	slog.Info("Retraining daemon started", "schedule", schedule)
	scheduler.Start()

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		slog.Warn("Timed out waiting for running sweep to finish")
	}

	slog.Info("Retraining daemon stopped")
	return nil
}

// runSweep retrains flagged owners first, then everyone else.
func runSweep(ctx context.Context, store *storage.SQLiteStorage, cfg trainer.Config, lookbackDays int) error {
	asOf := time.Now().UTC()

	flagged, err := store.ListRetrainRequested(ctx)
	if err != nil {
		return err
	}
	all, err := store.ListOwners(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(flagged)+len(all))
	owners := make([]string, 0, len(flagged)+len(all))
	for _, owner := range append(flagged, all...) {
		if !seen[owner] {
			seen[owner] = true
			owners = append(owners, owner)
		}
	}

	slog.Info("Starting training sweep", "owners", len(owners), "flagged", len(flagged))

	trained, skipped := 0, 0
	for _, owner := range owners {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := trainOwner(ctx, store, cfg, lookbackDays, owner, asOf, false)
		switch {
		case err == nil:
			trained++
		case errors.Is(err, common.ErrInsufficientData), errors.Is(err, common.ErrTrainingDivergence):
			slog.Info("Sweep skipped owner", "owner", owner, "reason", err)
			skipped++
		default:
			return err
		}
	}

	slog.Info("Training sweep complete", "trained", trained, "skipped", skipped)
	return nil
}
