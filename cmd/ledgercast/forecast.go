package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgercast/ledgercast/internal/cache"
	"github.com/ledgercast/ledgercast/internal/cli"
	"github.com/ledgercast/ledgercast/internal/config"
	"github.com/ledgercast/ledgercast/internal/engine"
	"github.com/ledgercast/ledgercast/internal/predictor"
	"github.com/ledgercast/ledgercast/internal/service"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Predict spending for the coming days",
		Long: `Forecast aggregates an owner's transaction history into a daily
spend series and predicts future spending, using the trained model when a
fresh artifact exists and a day-of-week statistical method otherwise.`,
		RunE: runForecast,
	}

	cmd.Flags().String("owner", "", "owner ID to forecast (required)")
	cmd.Flags().Int("days", 0, "forecast horizon in days (default: 30)")
	cmd.Flags().Bool("sparkline", false, "show a sparkline of the daily predictions")
	_ = cmd.MarkFlagRequired("owner")

	_ = viper.BindPFlag("forecast.horizon_days", cmd.Flags().Lookup("days"))

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	owner, _ := cmd.Flags().GetString("owner")
	horizon, _ := cmd.Flags().GetInt("days")
	if horizon <= 0 {
		horizon = settings.HorizonDays
	}

	fc := predictor.New(store, predictor.Config{
		DefaultHorizonDays: settings.HorizonDays,
		StalenessThreshold: settings.StalenessThreshold,
		LatencyBudget:      settings.LatencyBudget,
	})
	eng := engine.NewWithConfig(store, fc, predictor.NewScorer(), cache.New(settings.CacheTTL), engine.Config{
		LookbackDays:       settings.LookbackDays,
		DefaultHorizonDays: settings.HorizonDays,
	})

	resp, err := eng.Forecast(ctx, service.ForecastRequest{
		OwnerID:     owner,
		HorizonDays: horizon,
	})
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	fmt.Print(cli.RenderForecast(resp))

	if show, _ := cmd.Flags().GetBool("sparkline"); show && resp.Success {
		fmt.Println(cli.RenderSparkline(resp.Forecast.DailyPredictions))
	}

	return nil
}
