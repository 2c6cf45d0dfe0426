package worker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var n int64
	for i := 0; i < 100; i++ {
		require.True(t, pool.Submit(func() { atomic.AddInt64(&n, 1) }))
	}
	require.NoError(t, pool.Stop())

	assert.Equal(t, int64(100), atomic.LoadInt64(&n))
	assert.Equal(t, 0, pool.GetActiveWorkers())
	assert.Equal(t, 0, pool.GetQueueLength())
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	pool := NewWorkerPool(1, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var ran int64
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { atomic.StoreInt64(&ran, 1) })
	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())

	assert.Equal(t, int64(1), atomic.LoadInt64(&ran))
	assert.Equal(t, 10, pool.GetStats()["queue_capacity"])
}
