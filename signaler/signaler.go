package signaler

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Wait when tasks outlive the shutdown grace period
var ErrTimeout = errors.New("signaler: tasks did not finish before timeout")

// Signaler cancels a shared context on SIGINT or SIGTERM and
// waits for the tasks running under it to return
type Signaler struct {
	ctx    context.Context
	cancel context.CancelFunc

	signals  chan os.Signal
	shutdown chan struct{}
	errs     chan error
	group    sync.WaitGroup
}

// Setup starts catching signals
func Setup() *Signaler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Signaler{
		ctx:      ctx,
		cancel:   cancel,
		signals:  make(chan os.Signal, 1),
		shutdown: make(chan struct{}),
		errs:     make(chan error, 1),
	}

	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-s.signals:
			cancel()
			close(s.shutdown)
		case <-ctx.Done():
		}

		signal.Stop(s.signals)
	}()

	return s
}

// Context returns the context canceled on shutdown
func (s *Signaler) Context() context.Context {
	return s.ctx
}

// Start runs task on its own goroutine under the shared context.
// Only the first task error is kept.
func (s *Signaler) Start(task func(context.Context) error) {
	s.group.Add(1)

	go func() {
		defer s.group.Done()

		if err := task(s.ctx); err != nil {
			select {
			case s.errs <- err:
			default:
			}
		}
	}()
}

// ManualShutdown behaves as if a signal was received, then calls Wait
func (s *Signaler) ManualShutdown(timeout time.Duration) error {
	s.signals <- os.Interrupt

	return s.Wait(timeout)
}

// Wait blocks until every started task has returned, a task fails, or a
// shutdown was signaled and timeout has passed since.
func (s *Signaler) Wait(timeout time.Duration) error {
	defer s.cancel()

	done := make(chan struct{})

	go func() {
		s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case err := <-s.errs:
		return err
	case <-s.shutdown:
		select {
		case <-done:
		case <-time.After(timeout):
			return ErrTimeout
		}
	}

	// a task may have failed just before the group finished
	select {
	case err := <-s.errs:
		return err
	default:
	}

	return nil
}
