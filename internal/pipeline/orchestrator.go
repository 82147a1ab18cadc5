package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/config"
	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/structure"
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	engine  *structure.Engine
	store   Store
	fetcher *Fetcher
	log     *slog.Logger
	metrics metrics.Recorder
	cfg     config.Config

	onStored func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, engine *structure.Engine, st Store, rec metrics.Recorder, log *slog.Logger) *Orchestrator {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	fetcher := NewFetcher(cfg.FetchTimeout, cfg.FetchRetries, log)
	fetcher.MaxBytes = cfg.MaxUploadBytes
	fetcher.Metrics = rec
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		engine:  engine,
		store:   st,
		fetcher: fetcher,
		log:     log,
		metrics: rec,
		cfg:     cfg,
	}
}

// OnStored registers a hook run after every successful store write. It
// must be called before Start.
func (o *Orchestrator) OnStored(fn func()) {
	o.onStored = fn
}

// NewWorker returns a worker configured like the orchestrator's own.
func (o *Orchestrator) NewWorker() *Worker {
	w := NewWorker(o.engine, o.store, o.fetcher, o.log, o.metrics,
		chunker.Config{ChunkSize: o.cfg.ChunkSize, ChunkOverlap: o.cfg.ChunkOverlap, MinChunk: 1},
		parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext},
	)
	w.OnStored = o.onStored
	return w
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.NewWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
