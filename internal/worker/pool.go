package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storewatch/pkg/logger"
	"storewatch/pkg/models"
	"storewatch/pkg/ratelimit"
)

// ExtractFn fetches and parses one work item. A nil record with a nil error
// means the item yielded nothing; the orchestrator counts it as a failure.
type ExtractFn func(ctx context.Context, item models.Item) (*models.StoreRecord, error)

// Result is the outcome of one extraction job.
type Result struct {
	Item     models.Item
	Record   *models.StoreRecord
	Err      error
	Duration time.Duration
}

// Pool runs bounded-concurrency extraction. Each worker independently takes
// the randomized pre-request delay before its own fetch; there is no shared
// clock across workers.
type Pool struct {
	numWorkers int
	jobQueue   chan models.Item
	resultChan chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	extract    ExtractFn
	delayer    *ratelimit.RandomDelayer
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewPool creates an extraction worker pool.
func NewPool(
	ctx context.Context,
	numWorkers int,
	extract ExtractFn,
	delayer *ratelimit.RandomDelayer,
	limiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan models.Item, numWorkers*2),
		resultChan: make(chan Result, numWorkers),
		ctx:        poolCtx,
		cancel:     cancel,
		extract:    extract,
		delayer:    delayer,
		limiter:    limiter,
		logger:     log,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.DebugWithFields("starting extraction pool", map[string]interface{}{
		"workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals that no more jobs will arrive, waits for in-flight work, then
// closes the result channel.
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultChan)
	p.cancel()
}

// Submit queues a work item. It fails only when the pool is shutting down.
func (p *Pool) Submit(item models.Item) error {
	select {
	case p.jobQueue <- item:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel extraction outcomes arrive on.
func (p *Pool) Results() <-chan Result {
	return p.resultChan
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for item := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.processItem(item, id)

		select {
		case p.resultChan <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) processItem(item models.Item, workerID int) Result {
	start := time.Now()

	// This worker's own randomized pause, then the shared request budget.
	if p.delayer != nil {
		if err := p.delayer.Wait(p.ctx); err != nil {
			return Result{Item: item, Err: err, Duration: time.Since(start)}
		}
	}
	if !p.limiter.Allow() {
		p.logger.DebugWithFields("worker waiting for rate limit", map[string]interface{}{
			"worker_id": workerID,
			"item":      item.Key(),
		})
		p.limiter.Wait()
	}

	record, err := p.extract(p.ctx, item)
	result := Result{Item: item, Record: record, Err: err, Duration: time.Since(start)}

	if err != nil {
		p.logger.DebugWithFields("extraction failed", map[string]interface{}{
			"worker_id": workerID,
			"item":      item.Key(),
			"error":     err.Error(),
		})
	}
	return result
}
