package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_RunsAndDrains(t *testing.T) {
	p := NewPool(2, 10, time.Second, zap.NewNop())

	var done int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit("count", func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), atomic.LoadInt32(&done))
}

func TestPool_FailureDoesNotStopWorkers(t *testing.T) {
	p := NewPool(1, 10, time.Second, zap.NewNop())

	var ok int32
	require.NoError(t, p.Submit("fail", func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, p.Submit("panic", func(ctx context.Context) error { panic("boom") }))
	require.NoError(t, p.Submit("ok", func(ctx context.Context) error {
		atomic.AddInt32(&ok, 1)
		return nil
	}))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 1, time.Second, zap.NewNop())
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, time.Second, zap.NewNop())

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit("block", func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started

	require.NoError(t, p.Submit("queued", func(ctx context.Context) error { return nil }))
	err := p.Submit("overflow", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	require.NoError(t, p.Shutdown(context.Background()))
}
