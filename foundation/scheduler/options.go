package scheduler

import (
	"runtime"
	"time"
)

// Option configures a worker
type Option func(*workerOptions)

type workerOptions struct {
	poolSize     int
	autoscaleMax int
	timeout      time.Duration
}

func defaultOptions() workerOptions {
	return workerOptions{
		poolSize:     1,
		autoscaleMax: 1,
	}
}

// PoolSize sets the number of threads a worker keeps running, at least 1
func PoolSize(size int) Option {
	return func(o *workerOptions) {
		if size < 1 {
			size = 1
		}

		o.poolSize = size
	}
}

// Autoscale lets the autoscaler grow the worker up to max threads.
// 0 means one per CPU.
func Autoscale(max int) Option {
	return func(o *workerOptions) {
		if max == 0 {
			max = runtime.NumCPU()
		}

		o.autoscaleMax = max
	}
}

// TimeoutSeconds fails jobs that run longer than secs with ErrJobTimeout, 0 for no limit
func TimeoutSeconds(secs int) Option {
	return func(o *workerOptions) {
		o.timeout = time.Duration(secs) * time.Second
	}
}
