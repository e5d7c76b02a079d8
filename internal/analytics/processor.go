package analytics

import (
	"Taglink-Backend/internal/metrics"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotStarted      = errors.New("processor not started")
	ErrShutdownTimeout = errors.New("processor shutdown timeout reached")
)

// Job is a raw click captured on the redirect path. IP is only used for the geo lookup and
// never leaves the worker that handles the job.
type Job struct {
	LinkID     int64
	UserAgent  string
	Referrer   string
	IP         string
	OccurredAt time.Time
}

// ProcessorConfig holds configuration for the click processor
type ProcessorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RecordTimeout   time.Duration // Deadline for enriching and writing one click
	ShutdownTimeout time.Duration // Time to wait for the queue to drain on Stop
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:     4,
		BufferSize:      1024,
		RecordTimeout:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Processor records clicks off the redirect path. Jobs that do not fit in the queue, or
// that miss their deadline, are dropped and never retried.
type Processor struct {
	config   ProcessorConfig
	enricher *Enricher
	sink     Sink
	log      *zap.Logger
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

func NewProcessor(enricher *Enricher, sink Sink, log *zap.Logger, config ProcessorConfig) *Processor {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}
	if config.RecordTimeout <= 0 {
		config.RecordTimeout = DefaultConfig().RecordTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		config:   config,
		enricher: enricher,
		sink:     sink,
		log:      log,
		jobQueue: make(chan Job, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker pool.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}

	p.log.Info("starting click processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Duration("record_timeout", p.config.RecordTimeout),
	)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop stops accepting jobs and waits for queued ones to finish. Jobs still running when the
// shutdown timeout expires are cancelled.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.started = false
	close(p.jobQueue)
	p.mu.Unlock()

	p.log.Info("stopping click processor", zap.Int("queued", len(p.jobQueue)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()
	select {
	case <-done:
		p.log.Info("click processor stopped gracefully")
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.log.Warn("click processor shutdown timeout reached, dropping remaining clicks",
			zap.Int("queued", len(p.jobQueue)))
		return ErrShutdownTimeout
	}
}

// Submit enqueues a click without blocking. It reports false when the click was dropped.
func (p *Processor) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case p.jobQueue <- job:
		metrics.ClickQueueDepth.Set(float64(len(p.jobQueue)))
		return true
	default:
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
		p.log.Warn("click queue is full, dropping click",
			zap.Int64("link_id", job.LinkID),
			zap.Int("queue_size", cap(p.jobQueue)),
		)
		return false
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Debug("click worker started")

	for job := range p.jobQueue {
		metrics.ClickQueueDepth.Set(float64(len(p.jobQueue)))
		p.process(log, job)
	}

	log.Debug("click worker stopped")
}

func (p *Processor) process(log *zap.Logger, job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.RecordTimeout)
	defer cancel()

	ev := p.enricher.Enrich(ctx, job)
	if err := p.sink.Write(ctx, ev); err != nil {
		metrics.ClickEvents.WithLabelValues("failed").Inc()
		log.Warn("click dropped",
			zap.Int64("link_id", job.LinkID),
			zap.Error(err),
		)
		return
	}

	metrics.ClickEvents.WithLabelValues("recorded").Inc()
	log.Debug("click recorded",
		zap.Int64("link_id", ev.LinkID),
		zap.String("device_class", ev.DeviceClass),
	)
}

// Stats returns processor statistics for the health endpoint.
func (p *Processor) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"started":        p.started,
		"queue_length":   len(p.jobQueue),
		"queue_capacity": cap(p.jobQueue),
		"worker_count":   p.config.WorkerCount,
	}
}
