package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rthomann/docmill/internal/config"
	"github.com/rthomann/docmill/internal/source"
	"github.com/rthomann/docmill/internal/vlm"
)

// Orchestrator owns the job queue and worker pool for the web demo.
type Orchestrator struct {
	cfg       config.Config
	converter *Converter
	store     *JobStore
	queue     chan *Job
	log       *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewOrchestrator(cfg config.Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		converter: NewConverter(cfg, log),
		store:     NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		log:       log,
	}
}

// Start launches the worker pool and the TTL cleanup loop.
func (o *Orchestrator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}

	o.wg.Add(1)
	go o.cleanupLoop(ctx)

	o.log.Info("orchestrator started", "workers", o.cfg.WorkerCount, "queue_size", o.cfg.MaxQueueSize)
}

// Stop signals workers to finish and waits for them.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.log.Info("orchestrator stopped")
}

// Submit enqueues a conversion job. source is a URL when fileData is nil,
// otherwise the uploaded filename.
func (o *Orchestrator) Submit(src string, fileData []byte, opts Options) (*Job, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Source:    src,
		Status:    StatusQueued,
		Options:   opts,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	job.SetFileData(fileData)
	o.store.Put(job)

	select {
	case o.queue <- job:
		return job, nil
	default:
		job.SetStatus(StatusFailed, "queue full")
		return nil, fmt.Errorf("job queue is full (%d pending)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns the job by ID, nil if unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.store.Get(id)
}

// QueueDepth reports how many jobs are waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// VLMStats exposes the converter's model call aggregates.
func (o *Orchestrator) VLMStats() *vlm.Stats {
	return o.converter.VLMStats()
}

func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()
	log := o.log.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			o.process(ctx, job, log)
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, job *Job, log *slog.Logger) {
	start := time.Now()
	log.Info("job started", "job_id", job.ID, "source", job.Source)

	warnings, err := o.run(ctx, job)
	if err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "")
		log.Error("job failed", "job_id", job.ID, "error", err, "duration", time.Since(start))
		return
	}

	if warnings > 0 {
		job.SetStatus(StatusPartial, "")
		log.Warn("job completed with errors", "job_id", job.ID, "errors", warnings, "duration", time.Since(start))
		return
	}

	job.SetStatus(StatusCompleted, "")
	log.Info("job completed", "job_id", job.ID, "duration", time.Since(start))
}

// run returns how many enrichment stages failed without sinking the whole
// conversion.
func (o *Orchestrator) run(ctx context.Context, job *Job) (int, error) {
	in, err := o.resolveInput(ctx, job)
	if err != nil {
		return 0, err
	}

	job.SetStatus(StatusParsing, "detecting format and parsing")
	doc, err := o.converter.Parse(in, job.Options)
	if err != nil {
		return 0, err
	}

	job.SetStatus(StatusEnriching, "running enrichment stages")
	warnings, err := o.converter.Enrich(ctx, doc, job.Options)
	if err != nil {
		return 0, err
	}
	for _, w := range warnings {
		job.AddError(w)
	}

	job.SetDocument(doc)
	return len(warnings), nil
}

func (o *Orchestrator) resolveInput(ctx context.Context, job *Job) (*source.Input, error) {
	if data := job.FileData(); data != nil {
		return &source.Input{Name: job.Source, Data: data}, nil
	}
	job.SetStatus(StatusFetching, "downloading source")
	return o.converter.Resolve(ctx, job.Source)
}

func (o *Orchestrator) cleanupLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.store.Cleanup()
		}
	}
}
