package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSingleWorkerIsFIFO(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	var mu sync.Mutex
	order := make([]int, 0, 50)
	futures := make([]*Future[int], 0, 50)
	for i := 0; i < 50; i++ {
		f, err := Enqueue(p, func() (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}

	for i, f := range futures {
		v, err := f.Get()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestEnqueueReturnsTaskError(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	boom := errors.New("boom")
	f, err := Enqueue(p, func() (string, error) { return "", boom })
	require.NoError(t, err)

	_, err = f.Get()
	assert.ErrorIs(t, err, boom)
}

func TestEnqueueAfterShutdownFails(t *testing.T) {
	p := NewPool(2)
	p.Shutdown()

	var ran atomic.Bool
	_, err := Enqueue(p, func() (int, error) {
		ran.Store(true)
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrPoolClosed)

	err = p.EnqueueAndDetach(func() { ran.Store(true) })
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.False(t, ran.Load())
}

func TestShutdownDrainsQueuedTasks(t *testing.T) {
	p := NewPool(1)

	release := make(chan struct{})
	var count atomic.Int32
	require.NoError(t, p.EnqueueAndDetach(func() { <-release }))
	for i := 0; i < 10; i++ {
		require.NoError(t, p.EnqueueAndDetach(func() { count.Add(1) }))
	}

	close(release)
	p.Shutdown()
	assert.Equal(t, int32(10), count.Load())
	assert.Equal(t, 0, p.Pending())
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := NewPool(3)
	p.Shutdown()
	assert.NotPanics(t, p.Shutdown)
	assert.True(t, p.Closed())
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	var recovered atomic.Value
	p.OnPanic = func(r any, _ []byte) { recovered.Store(r) }

	f, err := Enqueue(p, func() (int, error) { panic("bad") })
	require.NoError(t, err)
	_, err = f.Get()
	assert.ErrorIs(t, err, ErrTaskPanicked)

	require.NoError(t, p.EnqueueAndDetach(func() { panic("detached") }))

	f2, err := Enqueue(p, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	v, err := f2.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, "detached", recovered.Load())
}

func TestNewPoolClampsWorkers(t *testing.T) {
	p := NewPool(0)
	defer p.Shutdown()
	assert.Equal(t, 1, p.Workers())
}

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Shutdown()

	const n = 1000
	hits := make([]int32, n)
	err := ParallelFor(p, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestParallelForOnClosedPool(t *testing.T) {
	p := NewPool(1)
	p.Shutdown()
	err := ParallelFor(p, 3, func(int, int) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.NoError(t, ParallelFor(p, 0, func(int, int) {}))
}

func TestForEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var seen atomic.Int32
	err := ForEach(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, _ int, v int) error {
		seen.Add(1)
		if v == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(4), seen.Load())
}
