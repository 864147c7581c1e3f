package signaler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWaitForTasks(t *testing.T) {
	s := Setup()

	ran := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		s.Start(func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}

	assert.NoError(t, s.Wait(time.Second))
	assert.Len(t, ran, 2)
}

func TestTaskError(t *testing.T) {
	s := Setup()

	boom := errors.New("boom")
	s.Start(func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, s.Wait(time.Second), boom)
}

func TestManualShutdown(t *testing.T) {
	s := Setup()

	s.Start(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	assert.NoError(t, s.ManualShutdown(time.Second))
	assert.Error(t, s.Context().Err())
}

func TestShutdownTimeout(t *testing.T) {
	s := Setup()

	s.Start(func(ctx context.Context) error {
		time.Sleep(2 * time.Second)
		return nil
	})

	assert.ErrorIs(t, s.ManualShutdown(50*time.Millisecond), ErrTimeout)
}
