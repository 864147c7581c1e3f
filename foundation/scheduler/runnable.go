package scheduler

import "context"

// ChangeEvent is a worker lifecycle change
type ChangeEvent int

// ChangeTypeStart is sent before each work thread starts, ChangeTypeStop once
// the worker has stopped all of them
const (
	ChangeTypeStart ChangeEvent = iota
	ChangeTypeStop
)

// Runnable runs the jobs of one type.
// Run may be called concurrently from every thread of the worker's pool.
type Runnable interface {
	Run(ctx context.Context, job Job) (interface{}, error)

	// OnChange lets the Runnable provision or release resources as the
	// worker's threads come and go. An error on start aborts the start.
	OnChange(ChangeEvent) error
}

// RunnableFunc is a Runnable without lifecycle hooks
type RunnableFunc func(ctx context.Context, job Job) (interface{}, error)

// Run calls f
func (f RunnableFunc) Run(ctx context.Context, job Job) (interface{}, error) {
	return f(ctx, job)
}

func (f RunnableFunc) OnChange(ChangeEvent) error {
	return nil
}
