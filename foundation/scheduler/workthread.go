package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/suborbital/e2bridge/foundation/tracing"
)

type workThread struct {
	runner  Runnable
	timeout time.Duration
	cancel  context.CancelFunc
}

func startWorkThread(runner Runnable, queue <-chan *Job, timeout time.Duration) *workThread {
	ctx, cancel := context.WithCancel(context.Background())

	wt := &workThread{
		runner:  runner,
		timeout: timeout,
		cancel:  cancel,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-queue:
				wt.work(job)
			}
		}
	}()

	return wt
}

func (wt *workThread) work(job *Job) {
	ctx, span := tracing.Tracer.Start(job.Context(), "workthread.work", trace.WithAttributes(
		attribute.String("job-id", job.ID()),
		attribute.String("jobType", job.Type()),
	))
	defer span.End()

	// the runner gets a copy so it cannot touch the queued job
	data, err := wt.run(ctx, job.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
	}

	job.result.complete(data, err)
}

func (wt *workThread) run(ctx context.Context, job Job) (interface{}, error) {
	if wt.timeout == 0 {
		return wt.runner.Run(ctx, job)
	}

	ctx, cancel := context.WithTimeout(ctx, wt.timeout)
	defer cancel()

	type outcome struct {
		data interface{}
		err  error
	}

	// buffered, a run that outlives its deadline finishes into the void
	done := make(chan outcome, 1)

	go func() {
		data, err := wt.runner.Run(ctx, job)
		done <- outcome{data, err}
	}()

	select {
	case o := <-done:
		return o.data, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrJobTimeout
		}

		return nil, ctx.Err()
	}
}

func (wt *workThread) stop() {
	wt.cancel()
}
