package scheduler

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const scaleInterval = 500 * time.Millisecond

// ScalerMetrics is a snapshot of every worker
type ScalerMetrics struct {
	TotalThreadCount int                      `json:"totalThreadCount"`
	TotalJobCount    int                      `json:"totalJobCount"`
	Workers          map[string]WorkerMetrics `json:"workers"`
}

// scaler holds the workers and, when any of them autoscales, resizes
// their pools on an interval
type scaler struct {
	workers map[string]*worker
	lock    sync.RWMutex

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	log zerolog.Logger
}

func newScaler(log zerolog.Logger) *scaler {
	return &scaler{
		workers: map[string]*worker{},
		done:    make(chan struct{}),
		log:     log,
	}
}

func (s *scaler) startAutoscaler() {
	s.startOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(scaleInterval)
			defer ticker.Stop()

			for {
				select {
				case <-s.done:
					return
				case <-ticker.C:
					s.lock.RLock()
					for _, w := range s.workers {
						s.scale(w)
					}
					s.lock.RUnlock()
				}
			}
		}()
	})
}

// scale doubles a busy worker's threads up to autoscaleMax and halves an idle
// one back towards poolSize. Busy means more than two queued or scheduled
// per second per thread.
func (s *scaler) scale(w *worker) {
	if w.opts.autoscaleMax <= w.opts.poolSize {
		return
	}

	m := w.metrics()
	busy := m.ThreadCount * 2
	idle := m.ThreadCount / 2

	target := m.ThreadCount

	switch {
	case m.JobCount > busy || m.JobRate > float64(busy):
		target = min(m.ThreadCount*2, w.opts.autoscaleMax)
	case m.JobCount < idle && m.JobRate < float64(idle):
		target = max(idle, w.opts.poolSize)
	}

	if target == m.ThreadCount {
		return
	}

	if err := w.resize(target); err != nil {
		s.log.Err(err).Str("jobType", w.jobType).Int("target", target).Msg("failed to scale worker")
	}
}

// addWorker starts w and publishes it. A worker that fails to start is
// still published, with no threads.
func (s *scaler) addWorker(w *worker) {
	if err := w.start(); err != nil {
		s.log.Err(err).Str("jobType", w.jobType).Msg("failed to start worker")
	}

	s.lock.Lock()
	s.workers[w.jobType] = w
	s.lock.Unlock()
}

// removeWorker stops and forgets the worker for jobType, if any
func (s *scaler) removeWorker(jobType string) error {
	s.lock.Lock()
	w, exists := s.workers[jobType]
	delete(s.workers, jobType)
	s.lock.Unlock()

	if !exists {
		return nil
	}

	if err := w.stop(); err != nil {
		return errors.Wrapf(err, "failed to stop %s worker", jobType)
	}

	return nil
}

func (s *scaler) findWorker(jobType string) *worker {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.workers[jobType]
}

func (s *scaler) jobTypes() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	types := make([]string, 0, len(s.workers))
	for jobType := range s.workers {
		types = append(types, jobType)
	}

	return types
}

func (s *scaler) stopAutoscaler() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *scaler) metrics() ScalerMetrics {
	s.lock.RLock()
	defer s.lock.RUnlock()

	m := ScalerMetrics{
		Workers: map[string]WorkerMetrics{},
	}

	for jobType, w := range s.workers {
		wm := w.metrics()

		m.TotalThreadCount += wm.ThreadCount
		m.TotalJobCount += wm.JobCount
		m.Workers[jobType] = wm
	}

	return m
}
