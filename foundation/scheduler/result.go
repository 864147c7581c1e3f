package scheduler

import "sync"

// Result is the eventual outcome of a scheduled job
type Result struct {
	id   string
	data interface{}
	err  error

	done chan struct{}
	once sync.Once
}

// ResultFunc receives a job's outcome
type ResultFunc func(interface{}, error)

func newResult(id string) *Result {
	return &Result{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the ID of the job the result belongs to
func (r *Result) ID() string {
	return r.id
}

// Done is closed once the outcome is known
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Then blocks until the job completes and returns its outcome
func (r *Result) Then() (interface{}, error) {
	<-r.done

	return r.data, r.err
}

// ThenDo calls do on its own goroutine once the job completes
func (r *Result) ThenDo(do ResultFunc) {
	go func() {
		do(r.Then())
	}()
}

// complete records the outcome, later calls are ignored
func (r *Result) complete(data interface{}, err error) {
	r.once.Do(func() {
		r.data, r.err = data, err
		close(r.done)
	})
}
