package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
)

type Job interface {
	Run(context.Context) error
	Name() string
}

// Pool runs jobs on a fixed set of goroutines fed by a bounded queue.
// Job failures are logged and counted, never returned to the submitter.
// With one worker jobs run strictly in submission order.
type Pool struct {
	mu      sync.RWMutex
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	queue   int
	started bool
	closed  bool
	cancel  context.CancelFunc
	log     *logger.Logger

	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		queue:   queueSize,
		log:     log,
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight jobs and stops
// the workers without draining the queue.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.log.Info("starting worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.WithField("worker_id", id)
			workerLog.Debug("worker started")

			for {
				select {
				case <-ctx.Done():
					workerLog.Debug("worker shutting down (context cancelled)")
					return
				case job, ok := <-p.jobs:
					if !ok {
						workerLog.Debug("worker shutting down (queue closed)")
						return
					}
					p.run(ctx, workerLog, job)
				}
			}
		}(i + 1)
	}
}

func (p *Pool) run(ctx context.Context, workerLog *logger.Logger, job Job) {
	jobLog := workerLog.WithField("job", job.Name())
	jobLog.Debug("starting job")
	start := time.Now()

	if err := job.Run(logger.NewContext(ctx, jobLog)); err != nil {
		p.failed.Add(1)
		jobLog.Warn("job failed after %v: %v", time.Since(start), err)
		return
	}
	p.completed.Add(1)
	jobLog.Debug("job completed in %v", time.Since(start))
}

// Stop closes the queue and waits until every queued job has run.
// Safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	p.log.Info("stopping worker pool")
	if started {
		p.wg.Wait()
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Info("worker pool stopped")
}

// TrySubmit enqueues job without blocking. It returns false when the pool is
// stopped or the queue is full; the job is then dropped.
func (p *Pool) TrySubmit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		p.log.Warn("pool stopped, dropping job: %s", job.Name())
		return false
	}
	select {
	case p.jobs <- job:
		p.log.Debug("submitted job: %s", job.Name())
		return true
	default:
		p.dropped.Add(1)
		p.log.Warn("queue full (%d), dropping job: %s", p.queue, job.Name())
		return false
	}
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// Stats reports how many jobs completed, failed and were dropped.
func (p *Pool) Stats() (completed, failed, dropped int64) {
	return p.completed.Load(), p.failed.Load(), p.dropped.Load()
}
