package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"storewatch/internal/worker"
	"storewatch/pkg/cache"
	"storewatch/pkg/checkpoint"
	"storewatch/pkg/config"
	"storewatch/pkg/errors"
	"storewatch/pkg/logger"
	"storewatch/pkg/models"
	"storewatch/pkg/ratelimit"
	"storewatch/pkg/registry"
	"storewatch/pkg/retry"
)

// DiscoverFunc resolves the full list of work items for a retailer. Invoked
// only on an item-cache miss.
type DiscoverFunc func(ctx context.Context, client registry.Client) ([]models.Item, error)

// ExtractFunc fetches and parses a single item into a store record. A nil
// record (with or without an error) marks the item failed.
type ExtractFunc func(ctx context.Context, client registry.Client, item models.Item) (*models.StoreRecord, error)

// KeyFunc derives the completed-set key for an item. The default uses the
// item's own Key.
type KeyFunc func(item models.Item) string

// Options tune a single run.
type Options struct {
	// Resume loads the existing checkpoint and skips completed items
	Resume bool
	// ForceRestart deletes any existing checkpoint before starting
	ForceRestart bool
	// Limit caps how many *remaining* items are processed, not how many
	// were discovered
	Limit int
	// RefreshCache bypasses the item cache and rediscovers
	RefreshCache bool
}

// Orchestrator coordinates one retailer's scrape: discovery (or cache),
// resume filtering, bounded-concurrency extraction, failure capture,
// periodic checkpointing, and result assembly.
type Orchestrator struct {
	cfg      *config.Config
	retailer string
	client   registry.Client
	opts     Options

	itemCache   *cache.ItemCache
	checkpoints *checkpoint.Manager
	limiter     ratelimit.Limiter
	delayer     *ratelimit.RandomDelayer
	logger      logger.Logger
}

// New creates an orchestrator for one retailer. The client handle comes from
// the caller's registry; the orchestrator never owns client lifecycle.
func New(cfg *config.Config, retailer string, client registry.Client, opts Options) (*Orchestrator, error) {
	log := logger.GetLogger().WithField("retailer", retailer)

	retailerDir := cfg.RetailerDir(retailer)
	checkpoints, err := checkpoint.NewManager(retailerDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.HTTP.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.HTTP.RequestsPerMinute, time.Minute)
	}

	return &Orchestrator{
		cfg:         cfg,
		retailer:    retailer,
		client:      client,
		opts:        opts,
		itemCache:   cache.New(cfg.Output.BaseDirectory, cfg.Cache.TTL, log),
		checkpoints: checkpoints,
		limiter:     limiter,
		delayer:     ratelimit.NewRandomDelayer(cfg.Scraper.DelayMin, cfg.Scraper.DelayMax),
		logger:      log,
	}, nil
}

// Checkpoints exposes the checkpoint manager, mainly for status inspection.
func (o *Orchestrator) Checkpoints() *checkpoint.Manager {
	return o.checkpoints
}

// Run executes the scrape. Per-item failures are absorbed and recorded; a
// discovery failure propagates to the caller with whatever checkpoint exists
// on disk left intact for a future resume.
func (o *Orchestrator) Run(ctx context.Context, discover DiscoverFunc, extract ExtractFunc, keyFn KeyFunc) (*models.RunResult, error) {
	if keyFn == nil {
		keyFn = func(item models.Item) string { return item.Key() }
	}
	runID := uuid.NewString()
	retailerDir := o.cfg.RetailerDir(o.retailer)

	lock, err := AcquireRunLock(retailerDir, o.retailer)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	items, err := o.resolveItems(ctx, discover)
	if err != nil {
		// Checkpoint state on disk is untouched; a future resume still works.
		return nil, errors.DiscoveryFailed(o.retailer, err)
	}

	cp, checkpointUsed, err := o.prepareCheckpoint()
	if err != nil {
		return nil, err
	}

	remaining := filterRemaining(items, keyFn, cp.CompletedSet())
	if o.opts.Limit > 0 && len(remaining) > o.opts.Limit {
		remaining = remaining[:o.opts.Limit]
	}

	o.logger.InfoWithFields("run starting", map[string]interface{}{
		"run_id":     runID,
		"discovered": len(items),
		"remaining":  len(remaining),
		"resumed":    checkpointUsed,
		"workers":    o.cfg.Scraper.ParallelWorkers,
	})

	state := &runState{
		cp:         cp,
		total:      len(remaining),
		priorCount: len(cp.Records),
	}

	if o.cfg.Scraper.ParallelWorkers > 1 {
		err = o.runParallel(ctx, remaining, extract, keyFn, state)
	} else {
		err = o.runSequential(ctx, remaining, extract, keyFn, state)
	}

	// Force a final checkpoint save no matter how the run ended.
	if saveErr := o.checkpoints.Save(cp); saveErr != nil {
		o.logger.WithError(saveErr).Error("final checkpoint save failed")
		if err == nil {
			err = saveErr
		}
	}

	if len(state.failedIDs) > 0 {
		if artErr := o.writeFailedArtifact(retailerDir, state.failedIDs); artErr != nil {
			o.logger.WithError(artErr).Warn("failed to write failed-extractions artifact")
		}
	}

	if err != nil {
		return nil, err
	}

	sort.Strings(state.failedIDs)
	result := &models.RunResult{
		RunID:          runID,
		Records:        cp.Records,
		Count:          len(cp.Records),
		FailedIDs:      state.failedIDs,
		CheckpointUsed: checkpointUsed,
	}

	o.logger.InfoWithFields("run complete", map[string]interface{}{
		"run_id":  runID,
		"records": result.Count,
		"failed":  len(result.FailedIDs),
	})

	return result, nil
}

// runState accumulates mutable progress for one run. All mutation happens on
// the orchestrator goroutine; workers only produce results.
type runState struct {
	cp         *checkpoint.Checkpoint
	total      int
	priorCount int
	processed  int
	failedIDs  []string
}

func (o *Orchestrator) runSequential(ctx context.Context, remaining []models.Item, extract ExtractFunc, keyFn KeyFunc, state *runState) error {
	for _, item := range remaining {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.delayer.Wait(ctx); err != nil {
			return err
		}
		if !o.limiter.Allow() {
			o.limiter.Wait()
		}

		record, err := extract(ctx, o.client, item)
		o.handleResult(item, record, err, keyFn, state)

		if err := o.maybeCheckpoint(state); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, remaining []models.Item, extract ExtractFunc, keyFn KeyFunc, state *runState) error {
	pool := worker.NewPool(ctx, o.cfg.Scraper.ParallelWorkers,
		func(ctx context.Context, item models.Item) (*models.StoreRecord, error) {
			return extract(ctx, o.client, item)
		},
		o.delayer, o.limiter, o.logger)
	pool.Start()

	go func() {
		for _, item := range remaining {
			if err := pool.Submit(item); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for result := range pool.Results() {
		o.handleResult(result.Item, result.Record, result.Err, keyFn, state)
		if err := o.maybeCheckpoint(state); err != nil {
			return err
		}
	}

	return ctx.Err()
}

// handleResult records one item's outcome: success joins the completed set
// and the record list, anything else joins the failed set. Failures never
// abort the run.
func (o *Orchestrator) handleResult(item models.Item, record *models.StoreRecord, err error, keyFn KeyFunc, state *runState) {
	key := keyFn(item)
	state.processed++

	switch {
	case err != nil:
		state.failedIDs = append(state.failedIDs, key)
		o.logger.WarnWithFields("item extraction failed", map[string]interface{}{
			"item":  key,
			"error": err.Error(),
		})
	case record == nil:
		state.failedIDs = append(state.failedIDs, key)
		o.logger.WarnWithFields("item yielded no record", map[string]interface{}{
			"item": key,
		})
	default:
		state.cp.MarkCompleted(key, record)
	}

	if p := o.cfg.Scraper.HeartbeatInterval; p > 0 && state.processed%p == 0 {
		o.logger.InfoWithFields("progress", map[string]interface{}{
			"processed": state.processed,
			"total":     state.total,
			"records":   len(state.cp.Records),
			"failed":    len(state.failedIDs),
		})
	}
}

// maybeCheckpoint saves every K processed items.
func (o *Orchestrator) maybeCheckpoint(state *runState) error {
	k := o.cfg.Scraper.CheckpointInterval
	if k <= 0 || state.processed%k != 0 {
		return nil
	}
	if err := o.checkpoints.Save(state.cp); err != nil {
		// A failed periodic save costs durability, not correctness.
		o.logger.WithError(err).Warn("periodic checkpoint save failed")
	}
	return nil
}

// resolveItems returns the work list from the item cache, falling back to
// discovery (with bounded retry) on a miss and repopulating the cache.
func (o *Orchestrator) resolveItems(ctx context.Context, discover DiscoverFunc) ([]models.Item, error) {
	refresh := o.opts.RefreshCache || o.cfg.Cache.Refresh
	if items := o.itemCache.Get(o.retailer, refresh); items != nil {
		o.logger.InfoWithFields("using cached item list", map[string]interface{}{
			"items": len(items),
		})
		return items, nil
	}

	var items []models.Item
	retryCfg := &retry.Config{
		MaxAttempts: o.cfg.Scraper.DiscoveryRetries,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      o.logger,
	}
	err := retry.Do(func() error {
		var derr error
		items, derr = discover(ctx, o.client)
		return derr
	}, retryCfg)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("discovery returned no items")
	}

	if err := o.itemCache.Set(o.retailer, items); err != nil {
		o.logger.WithError(err).Warn("failed to populate item cache")
	}
	return items, nil
}

// prepareCheckpoint applies the resume/restart options and returns the
// checkpoint to accumulate into, plus whether prior progress was loaded.
func (o *Orchestrator) prepareCheckpoint() (*checkpoint.Checkpoint, bool, error) {
	if o.opts.ForceRestart {
		if err := o.checkpoints.Delete(); err != nil {
			return nil, false, err
		}
		return checkpoint.NewCheckpoint(), false, nil
	}

	if o.opts.Resume {
		cp, err := o.checkpoints.Load()
		if err != nil {
			return nil, false, err
		}
		if cp != nil {
			return cp, len(cp.CompletedIDs) > 0, nil
		}
	}

	return checkpoint.NewCheckpoint(), false, nil
}

// filterRemaining drops completed items, preserving discovery order.
func filterRemaining(items []models.Item, keyFn KeyFunc, completed map[string]struct{}) []models.Item {
	remaining := make([]models.Item, 0, len(items))
	for _, item := range items {
		if _, done := completed[keyFn(item)]; !done {
			remaining = append(remaining, item)
		}
	}
	return remaining
}

func (o *Orchestrator) writeFailedArtifact(retailerDir string, failedIDs []string) error {
	sorted := make([]string, len(failedIDs))
	copy(sorted, failedIDs)
	sort.Strings(sorted)

	artifact := models.FailedExtractions{
		RunDate:     time.Now().UTC(),
		FailedCount: len(sorted),
		FailedIDs:   sorted,
	}
	return writeJSONAtomic(filepath.Join(retailerDir, "failed_extractions.json"), artifact)
}
