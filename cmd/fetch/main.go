// Command fetch runs a single rating pass and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/pipeline"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	seasonYear int
	seasonID   int
	output     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a VEX U season and publish Elo, SoS and skills per team",
	Long: `fetch pulls every team, match and skills record of one season from the
RobotEvents API, recomputes Elo and strength of schedule from scratch and
publishes the per-team table to the CSV file and any configured mirrors.

Configuration comes from the environment (see .env); flags override it.

Example:
  fetch --season-year 2025
  fetch --season-id 190 --output public/dashboard_data.csv`,
	SilenceUsage: true,
	RunE:         runFetch,
}

func init() {
	rootCmd.Flags().IntVar(&seasonYear, "season-year", 0, "season year to resolve (overrides SEASON_YEAR)")
	rootCmd.Flags().IntVar(&seasonID, "season-id", 0, "season id (overrides SEASON_ID and skips lookup)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "CSV output path (overrides OUTPUT_CSV)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, closeAll, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d teams, %d matches rated (%d records skipped) in %s -> %s\n",
		report.Season.Name, report.Teams, report.Matches, report.Skipped,
		report.Duration.Round(time.Second), cfg.OutputCSV)
	return nil
}

// applyFlags overrides configuration with the flags the user set
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("season-year") {
		cfg.SeasonYear = seasonYear
	}
	if flags.Changed("season-id") {
		cfg.SeasonID = seasonID
	}
	if flags.Changed("output") {
		cfg.OutputCSV = output
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
