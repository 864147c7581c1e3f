package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const queueSize = 256

// ErrJobTimeout and others are returned through a job's Result
var (
	ErrJobTimeout     = errors.New("job timeout")
	ErrUnknownJobType = errors.New("no worker registered for job type")
	ErrWorkerStopped  = errors.New("worker stopped before the job ran")
)

// WorkerMetrics is a snapshot of one worker
type WorkerMetrics struct {
	TargetThreadCount int     `json:"targetThreadCount"`
	ThreadCount       int     `json:"threadCount"`
	JobCount          int     `json:"jobCount"`
	JobRate           float64 `json:"jobRate"`
}

// worker owns the queue and thread pool for one job type
type worker struct {
	jobType string
	runner  Runnable
	opts    workerOptions
	queue   chan *Job

	lock      sync.Mutex
	threads   []*workThread
	sampledAt time.Time
	stopped   bool
	ran       bool

	started   atomic.Bool
	scheduled atomic.Int64

	log zerolog.Logger
}

func newWorker(jobType string, runner Runnable, opts workerOptions, log zerolog.Logger) *worker {
	return &worker{
		jobType:   jobType,
		runner:    runner,
		opts:      opts,
		queue:     make(chan *Job, queueSize),
		sampledAt: time.Now(),
		log:       log.With().Str("jobType", jobType).Logger(),
	}
}

// schedule queues job without blocking the caller.
// Jobs for a stopped worker fail with ErrWorkerStopped.
func (w *worker) schedule(job *Job) {
	w.scheduled.Add(1)

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.stopped {
		job.result.complete(nil, errors.Wrap(ErrWorkerStopped, w.jobType))
		return
	}

	select {
	case w.queue <- job:
	default:
		go func() {
			w.queue <- job

			// stop may have drained the queue before this send landed
			if w.isStopped() {
				w.drain()
			}
		}()
	}
}

func (w *worker) isStopped() bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.stopped
}

// drain fails every queued job with ErrWorkerStopped
func (w *worker) drain() {
	for {
		select {
		case job := <-w.queue:
			job.result.complete(nil, errors.Wrap(ErrWorkerStopped, w.jobType))
		default:
			return
		}
	}
}

// start brings the pool up to its configured size, once
func (w *worker) start() error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := w.resize(w.opts.poolSize); err != nil {
		w.started.Store(false)
		return errors.Wrap(err, "failed to resize")
	}

	return nil
}

// resize starts or stops threads until there are count of them
func (w *worker) resize(count int) error {
	if count < 1 {
		count = 1
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.stopped {
		return nil
	}

	for len(w.threads) > count {
		last := len(w.threads) - 1

		w.threads[last].stop()
		w.threads = w.threads[:last]
	}

	for len(w.threads) < count {
		if err := w.runner.OnChange(ChangeTypeStart); err != nil {
			return errors.Wrap(err, "failed to OnChange")
		}

		w.threads = append(w.threads, startWorkThread(w.runner, w.queue, w.opts.timeout))
		w.ran = true
	}

	return nil
}

// stop stops every thread and fails the jobs still queued. A stopped worker
// never starts threads again.
func (w *worker) stop() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true

	for _, wt := range w.threads {
		wt.stop()
	}

	w.threads = nil

	w.drain()

	// nothing to release if no thread ever started
	if !w.ran {
		return nil
	}

	if err := w.runner.OnChange(ChangeTypeStop); err != nil {
		return errors.Wrap(err, "failed to OnChange")
	}

	return nil
}

// metrics samples the worker; JobRate is jobs scheduled per second since the previous sample
func (w *worker) metrics() WorkerMetrics {
	w.lock.Lock()
	defer w.lock.Unlock()

	now := time.Now()
	elapsed := now.Sub(w.sampledAt).Seconds()
	w.sampledAt = now

	rate := 0.0
	if elapsed > 0 {
		rate = float64(w.scheduled.Swap(0)) / elapsed
	}

	return WorkerMetrics{
		TargetThreadCount: w.opts.poolSize,
		ThreadCount:       len(w.threads),
		JobCount:          len(w.queue),
		JobRate:           rate,
	}
}
