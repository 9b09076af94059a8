package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type ctxKey struct{}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(0, 1, nil, nil)
	assert.Error(t, err)

	_, err = New(1, -1, nil, nil)
	assert.Error(t, err)
}

func TestPool_RunsAllTasksBeforeStopReturns(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry(), "test")
	p, err := New(4, 100, metrics, zaptest.NewLogger(t))
	require.NoError(t, err)

	var done atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Enqueue(context.Background(), func(context.Context) {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}))
	}

	require.NoError(t, p.Stop(5*time.Second))
	assert.Equal(t, int32(50), done.Load())
	assert.Equal(t, float64(50), testutil.ToFloat64(metrics.Succeeded))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.QueueSize))
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	p, err := New(1, 1, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, p.Stop(time.Second))
	assert.ErrorIs(t, p.Enqueue(context.Background(), func(context.Context) {}), ErrStopped)

	// second stop is a no-op
	assert.NoError(t, p.Stop(time.Second))
}

func TestPool_TaskContextOutlivesCaller(t *testing.T) {
	p, err := New(1, 1, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "value"))

	result := make(chan error, 1)
	value := make(chan any, 1)
	require.NoError(t, p.Enqueue(ctx, func(taskCtx context.Context) {
		cancel()
		value <- taskCtx.Value(ctxKey{})
		result <- taskCtx.Err()
	}))

	assert.Equal(t, "value", <-value)
	assert.NoError(t, <-result)
	require.NoError(t, p.Stop(time.Second))
}

func TestPool_EnqueueHonoursContextWhenFull(t *testing.T) {
	p, err := New(1, 0, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Enqueue(context.Background(), func(context.Context) {
		close(started)
		<-block
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Enqueue(ctx, func(context.Context) {}), context.DeadlineExceeded)

	close(block)
	require.NoError(t, p.Stop(time.Second))
}

func TestPool_PanicIsRecovered(t *testing.T) {
	metrics := NewMetrics(nil, "panics")
	p, err := New(1, 2, metrics, zaptest.NewLogger(t))
	require.NoError(t, err)

	var ran atomic.Bool
	require.NoError(t, p.Enqueue(context.Background(), func(context.Context) { panic("boom") }))
	require.NoError(t, p.Enqueue(context.Background(), func(context.Context) { ran.Store(true) }))

	require.NoError(t, p.Stop(time.Second))
	assert.True(t, ran.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Failed))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Succeeded))
}

func TestPool_StopTimeout(t *testing.T) {
	p, err := New(1, 0, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Enqueue(context.Background(), func(context.Context) {
		close(started)
		<-block
	}))
	<-started

	assert.ErrorIs(t, p.Stop(10*time.Millisecond), ErrStopTimeout)
	close(block)
}

func TestPool_StopTimeoutWithBlockedEnqueue(t *testing.T) {
	p, err := New(1, 0, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Enqueue(context.Background(), func(context.Context) {
		close(started)
		<-block
	}))
	<-started

	enqueued := make(chan error, 1)
	go func() {
		enqueued <- p.Enqueue(context.Background(), func(context.Context) {})
	}()
	// let the second Enqueue block on the full queue
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	assert.ErrorIs(t, p.Stop(50*time.Millisecond), ErrStopTimeout)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case err := <-enqueued:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("blocked Enqueue did not return after Stop")
	}

	close(block)
}
