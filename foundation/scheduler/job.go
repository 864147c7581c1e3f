package scheduler

import (
	"context"

	"github.com/google/uuid"
)

// Job is one unit of work for the worker registered for its type
type Job struct {
	id      string
	jobType string
	data    interface{}
	ctx     context.Context
	result  *Result
}

// NewJob creates a job with a fresh ID
func NewJob(jobType string, data interface{}) Job {
	return Job{
		id:      uuid.New().String(),
		jobType: jobType,
		data:    data,
	}
}

func (j Job) ID() string {
	return j.id
}

func (j Job) Type() string {
	return j.jobType
}

// Data returns the value the job was created with
func (j Job) Data() interface{} {
	return j.data
}

// Context returns the job's context, never nil
func (j Job) Context() context.Context {
	if j.ctx == nil {
		return context.Background()
	}

	return j.ctx
}

// WithContext returns a copy of the job carrying ctx
func (j Job) WithContext(ctx context.Context) Job {
	j.ctx = ctx
	return j
}
