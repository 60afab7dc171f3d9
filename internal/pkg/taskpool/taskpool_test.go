package taskpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	t.Parallel()

	pool := NewPool(4)
	pool.Start()
	defer pool.Stop(time.Second)

	var ran int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&ran, 1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, int64(50), atomic.LoadInt64(&ran))
}

func TestPoolDefaultsWorkerCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, NewPool(0).workers)
	assert.Equal(t, 3, NewPool(-5).workers)
	assert.Equal(t, 8, NewPool(8).workers)
}

func TestPoolSubmitWhenNotRunning(t *testing.T) {
	t.Parallel()

	pool := NewPool(2)
	assert.ErrorIs(t, pool.Submit(func() {}), ErrNotRunning)

	pool.Start()
	pool.Stop(time.Second)
	assert.ErrorIs(t, pool.Submit(func() {}), ErrNotRunning)
}

func TestPoolStopDrainsQueuedTasks(t *testing.T) {
	t.Parallel()

	pool := NewPool(1)
	pool.Start()

	var ran int64
	for i := 0; i < 20; i++ {
		err := pool.Submit(func() {
			atomic.AddInt64(&ran, 1)
		})
		require.NoError(t, err)
	}

	pool.Stop(5 * time.Second)
	assert.Equal(t, int64(20), atomic.LoadInt64(&ran))
}

func TestPoolRecoversFromTaskPanic(t *testing.T) {
	t.Parallel()

	pool := NewPool(1)
	pool.Start()
	defer pool.Stop(time.Second)

	require.NoError(t, pool.Submit(func() {
		panic("task blew up")
	}))

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestPoolStartIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := NewPool(2)
	pool.Start()
	pool.Start()
	defer pool.Stop(time.Second)

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}
}
