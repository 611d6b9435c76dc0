package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue once the queue is shutting down.
var ErrQueueClosed = errors.New("queue closed")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// FailureHook observes a job that will not be attempted again.
type FailureHook func(Job, error)

// QueueConfig configures worker pool behaviour. MaxRetries of zero disables
// retries; failed jobs are reported once through OnFailure. JobTimeout bounds
// a single handler call.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	JobTimeout time.Duration
	Logger     *zap.Logger
	OnFailure  FailureHook
}

// Queue is a bounded in-memory job dispatcher. Shutdown stops intake and
// lets workers drain what is already buffered.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs     chan Job
	draining chan struct{}
	senders  sync.WaitGroup
	workers  sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	closing bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:     name,
		handler:  handler,
		cfg:      cfg,
		logger:   cfg.Logger.With(zap.String("queue", name)),
		jobs:     make(chan Job, cfg.BufferSize),
		draining: make(chan struct{}),
	}
}

// Start launches the workers. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closing {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Name identifies the queue in logs and metrics.
func (q *Queue) Name() string { return q.name }

// Depth reports how many jobs are buffered and not yet picked up.
func (q *Queue) Depth() int { return len(q.jobs) }

// Enqueue buffers job, waiting for room until ctx is done or the queue closes.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.closing {
		q.mu.Unlock()
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.draining:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	case <-ctx.Done():
		return fmt.Errorf("queue %s enqueue: %w", q.name, ctx.Err())
	}
}

// Shutdown stops intake and waits for buffered jobs to finish. When ctx ends
// first, running handlers are cancelled and the remaining jobs are dropped.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.closing {
		q.mu.Unlock()
		return nil
	}
	q.closing = true
	q.mu.Unlock()

	close(q.draining)
	q.senders.Wait()
	close(q.jobs)

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		q.logger.Warn("queue shutdown deadline reached, pending jobs dropped")
		return ctx.Err()
	}
}

// Stop cancels running jobs and discards anything still buffered.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = q.Shutdown(context.Background())
}

func (q *Queue) work() {
	defer q.workers.Done()
	for job := range q.jobs {
		if q.ctx.Err() != nil {
			q.logger.Warn("job dropped", zap.String("job_id", job.ID), zap.String("type", job.Type))
			continue
		}
		ctx, cancel := context.WithTimeout(q.ctx, q.cfg.JobTimeout)
		err := q.handler(ctx, job)
		cancel()
		if err != nil {
			q.handleFailure(job, err)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job failed", fields...)
		if q.cfg.OnFailure != nil {
			q.cfg.OnFailure(job, err)
		}
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	go func(j Job) {
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(q.ctx, j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
