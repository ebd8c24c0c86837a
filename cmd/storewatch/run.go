package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"storewatch/pkg/adapters"
	"storewatch/pkg/changes"
	"storewatch/pkg/config"
	"storewatch/pkg/logger"
	"storewatch/pkg/registry"
	"storewatch/pkg/scraper"
)

var (
	// Run command flags
	outputDir    string
	workers      int
	limit        int
	resumeRun    bool
	forceRestart bool
	refreshCache bool
	skipDiff     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <retailer>",
	Short: "Scrape a retailer's store locator and record changes",
	Long: `Run a full scrape for one retailer: discover (or reuse cached) work items,
extract store records with bounded concurrency, checkpoint progress, then diff
the result against the previous snapshot and append a change report.

The retailer must have an endpoint configured under "retailers" in the config
file. Interrupted runs keep their checkpoint; rerun with --resume to continue.`,
	Example: `  # Scrape with defaults
  storewatch run acme-hardware

  # Resume an interrupted run
  storewatch run acme-hardware --resume

  # Start over, ignoring checkpoint and item cache
  storewatch run acme-hardware --force-restart --refresh-cache

  # Smoke-test against the first 10 remaining items
  storewatch run acme-hardware --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(strings.TrimSpace(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for per-retailer artifacts")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel extraction workers (1 = sequential)")
	runCmd.Flags().IntVar(&limit, "limit", 0, "cap on remaining items to process")
	runCmd.Flags().BoolVar(&resumeRun, "resume", false, "resume from the last checkpoint")
	runCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "delete any existing checkpoint before starting")
	runCmd.Flags().BoolVar(&refreshCache, "refresh-cache", false, "rediscover items even if the cache is fresh")
	runCmd.Flags().BoolVar(&skipDiff, "no-diff", false, "skip change detection and snapshot rotation")
}

func runScrape(retailer string) error {
	flags := map[string]interface{}{}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if workers > 0 {
		flags["workers"] = workers
	}
	if limit > 0 {
		flags["limit"] = limit
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()

	retailerCfg, ok := cfg.Retailers[retailer]
	if !ok {
		return fmt.Errorf("retailer %q is not configured (add it under retailers in the config file)", retailer)
	}
	adapter, err := adapters.NewJSONAdapter(retailerCfg)
	if err != nil {
		return fmt.Errorf("retailer %q: %w", retailer, err)
	}

	clients := registry.NewWithConfig(cfg.HTTP)
	defer clients.Close()

	client, err := clients.Get(retailer)
	if err != nil {
		return err
	}

	orch, err := scraper.New(cfg, retailer, client, scraper.Options{
		Resume:       resumeRun,
		ForceRestart: forceRestart,
		Limit:        cfg.Scraper.Limit,
		RefreshCache: refreshCache,
	})
	if err != nil {
		return err
	}

	// Interrupts cancel between items; progress up to the last checkpoint
	// interval survives for --resume.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx, adapter.Discover, adapter.Extract, nil)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("Scraped %d stores (%d failed items)\n", result.Count, len(result.FailedIDs))

	if skipDiff {
		return nil
	}

	tracker := changes.NewTracker(cfg.RetailerDir(retailer), retailer, log)
	report, err := tracker.Commit(result.RunID, result.Records)
	if err != nil {
		return fmt.Errorf("failed to record changes: %w", err)
	}

	fmt.Printf("Changes: %d new, %d closed, %d modified, %d unchanged\n",
		len(report.New), len(report.Closed), len(report.Modified), report.UnchangedCount)
	return nil
}
