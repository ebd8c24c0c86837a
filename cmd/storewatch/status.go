package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storewatch/pkg/changes"
	"storewatch/pkg/checkpoint"
	"storewatch/pkg/config"
	"storewatch/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <retailer>",
	Short: "Show checkpoint and change-history state for a retailer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(strings.TrimSpace(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(retailer string) error {
	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": "error"})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()

	retailerDir := cfg.RetailerDir(retailer)

	mgr, err := checkpoint.NewManager(retailerDir, log)
	if err != nil {
		return err
	}
	if cp, _ := mgr.Load(); cp != nil {
		fmt.Printf("Checkpoint: %d completed items, %d records, updated %s\n",
			len(cp.CompletedIDs), len(cp.Records), cp.LastUpdated.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Checkpoint: none")
	}

	tracker := changes.NewTracker(retailerDir, retailer, log)
	latest, err := tracker.LoadLatest()
	if err != nil {
		return err
	}
	if latest == nil {
		fmt.Println("Snapshot: none (never scraped)")
		return nil
	}
	fmt.Printf("Snapshot: %d stores in latest\n", len(latest))

	history, err := tracker.History()
	if err != nil {
		return err
	}
	fmt.Printf("History: %d change reports\n", len(history))
	if n := len(history); n > 0 {
		last := history[n-1]
		fmt.Printf("Last run %s: %d new, %d closed, %d modified\n",
			last.Timestamp.Format("2006-01-02 15:04:05"),
			last.NewCount, last.ClosedCount, last.ModifiedCount)
	}
	return nil
}
