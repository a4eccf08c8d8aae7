// Package runner fans independent crawl sessions out over a bounded pool
// of workers. One session owns one page surface; sessions never share
// scroll or rate-limit state, so running them concurrently needs no
// locking beyond the item sink.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedcrawl/pkg/logger"
	"feedcrawl/pkg/models"
)

// FeedJob describes one feed to crawl.
type FeedJob struct {
	URL    string
	Source string
}

// FeedResult represents the outcome of one crawl session
type FeedResult struct {
	Job      FeedJob
	Items    int
	Err      error
	Duration time.Duration
}

// Session is one lazily yielding crawl; *crawl.Loop satisfies it.
type Session interface {
	Run(ctx context.Context) <-chan models.Item
	Err() error
}

// SessionFactory builds a ready-to-run crawl session for a job. The
// returned cleanup closes the session's page surface.
type SessionFactory interface {
	NewSession(ctx context.Context, job FeedJob) (session Session, cleanup func(), err error)
}

// ItemSink consumes items as sessions yield them. Implementations must be
// safe for concurrent use; *store.ItemStore qualifies.
type ItemSink interface {
	SaveItem(ctx context.Context, source string, item models.Item) error
}

// Pool manages concurrent crawl session workers
type Pool struct {
	numWorkers  int
	jobQueue    chan FeedJob
	resultQueue chan FeedResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	factory     SessionFactory
	sink        ItemSink
	logger      logger.Logger
}

// NewPool creates a new session pool
func NewPool(ctx context.Context, numWorkers int, factory SessionFactory, sink ItemSink, log logger.Logger) *Pool {
	ctx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan FeedJob, numWorkers*2),
		resultQueue: make(chan FeedResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		factory:     factory,
		sink:        sink,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting session pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down the pool after all submitted jobs finish
func (p *Pool) Stop() {
	p.logger.Info("Stopping session pool...")

	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Info("Session pool stopped")
}

// Submit adds a feed job to the queue
func (p *Pool) Submit(job FeedJob) error {
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Feed job submitted", map[string]interface{}{
			"url":    job.URL,
			"source": job.Source,
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("session pool is shutting down")
	}
}

// Results returns the result channel for consuming session outcomes
func (p *Pool) Results() <-chan FeedResult {
	return p.resultQueue
}

// worker is the main worker routine
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.runSession(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// runSession drives one crawl session to completion, saving every item it
// yields.
func (p *Pool) runSession(job FeedJob, workerID int) FeedResult {
	start := time.Now()
	result := FeedResult{Job: job}

	p.logger.InfoWithFields("Worker starting crawl session", map[string]interface{}{
		"worker_id": workerID,
		"url":       job.URL,
		"source":    job.Source,
	})

	session, cleanup, err := p.factory.NewSession(p.ctx, job)
	if err != nil {
		result.Err = fmt.Errorf("session setup failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	defer cleanup()

	for item := range session.Run(p.ctx) {
		if err := p.sink.SaveItem(p.ctx, job.Source, item); err != nil {
			p.logger.ErrorWithFields("Worker failed to save item", map[string]interface{}{
				"worker_id":  workerID,
				"identifier": item.URL(),
				"error":      err.Error(),
			})
			continue
		}
		result.Items++
	}
	result.Err = session.Err()
	result.Duration = time.Since(start)

	p.logger.InfoWithFields("Worker finished crawl session", map[string]interface{}{
		"worker_id": workerID,
		"source":    job.Source,
		"items":     result.Items,
		"duration":  result.Duration,
	})

	return result
}

// QueueSize returns the current number of queued jobs
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}
