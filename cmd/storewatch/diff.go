package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storewatch/pkg/changes"
	"storewatch/pkg/config"
	"storewatch/pkg/logger"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <retailer>",
	Short: "Show the changes between the previous and latest snapshots",
	Long: `Rebuild the change report from the retailer's previous and latest snapshots
on disk, without scraping anything. Useful for inspecting what the most recent
run changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(strings.TrimSpace(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(retailer string) error {
	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevel})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()

	tracker := changes.NewTracker(cfg.RetailerDir(retailer), retailer, log)

	latest, err := tracker.LoadLatest()
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no snapshot exists for %q yet; run a scrape first", retailer)
	}
	previous, err := tracker.LoadPrevious()
	if err != nil {
		return err
	}

	report := changes.DetectChanges(
		changes.BuildIndex(previous, log),
		changes.BuildIndex(latest, log),
	)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
