// Package scheduler runs jobs on pools of worker goroutines, one pool per
// registered job type.
package scheduler

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/suborbital/e2bridge/foundation/tracing"
)

// JobFunc schedules a job of a predetermined type
type JobFunc func(interface{}) *Result

// Scheduler routes jobs to the worker registered for their type
type Scheduler struct {
	scaler *scaler
	log    zerolog.Logger
}

// New returns a Scheduler logging to stderr
func New() *Scheduler {
	return NewWithLogger(zerolog.New(os.Stderr).With().
		Timestamp().
		Str("component", "scheduler").
		Logger())
}

// NewWithLogger returns a Scheduler with a custom logger
func NewWithLogger(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scaler: newScaler(log),
		log:    log,
	}
}

// Do queues job and returns its Result. A job of an unregistered type
// completes immediately with ErrUnknownJobType.
func (s *Scheduler) Do(job Job) *Result {
	ctx, span := tracing.Tracer.Start(job.Context(), "scheduler.do", trace.WithAttributes(
		attribute.String("job-id", job.ID()),
		attribute.String("jobType", job.Type()),
	))
	defer span.End()

	job = job.WithContext(ctx)
	job.result = newResult(job.ID())

	w := s.scaler.findWorker(job.Type())
	if w == nil {
		job.result.complete(nil, errors.Wrap(ErrUnknownJobType, job.Type()))
		return job.result
	}

	s.log.Debug().Str("jobID", job.ID()).Str("jobType", job.Type()).Msg("job scheduled")

	w.schedule(&job)

	return job.result
}

// Register starts a worker for jobType and returns a shortcut for scheduling its jobs.
// Registering a type again replaces its worker; jobs queued for the old one
// fail with ErrWorkerStopped.
func (s *Scheduler) Register(jobType string, runner Runnable, options ...Option) JobFunc {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}

	if err := s.scaler.removeWorker(jobType); err != nil {
		s.log.Err(err).Str("jobType", jobType).Msg("failed to replace worker")
	}

	if opts.autoscaleMax > opts.poolSize {
		s.scaler.startAutoscaler()
	}

	s.scaler.addWorker(newWorker(jobType, runner, opts, s.log))

	return func(data interface{}) *Result {
		return s.Do(NewJob(jobType, data))
	}
}

// DeRegister stops the worker for jobType and removes it
func (s *Scheduler) DeRegister(jobType string) error {
	return s.scaler.removeWorker(jobType)
}

// IsRegistered returns true if a worker is registered for jobType
func (s *Scheduler) IsRegistered(jobType string) bool {
	return s.scaler.findWorker(jobType) != nil
}

// Metrics returns a snapshot of every worker
func (s *Scheduler) Metrics() ScalerMetrics {
	return s.scaler.metrics()
}

// Stop stops the autoscaler and every worker. Jobs still queued fail with ErrWorkerStopped.
func (s *Scheduler) Stop() error {
	s.scaler.stopAutoscaler()

	for _, jobType := range s.scaler.jobTypes() {
		if err := s.scaler.removeWorker(jobType); err != nil {
			return errors.Wrap(err, "failed to removeWorker")
		}
	}

	return nil
}
