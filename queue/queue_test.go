package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jobpulse/errors"
)

func TestRunPreservesOrder(t *testing.T) {
	q := New(0, nil)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(Task{Name: "publish", Run: func(context.Context) error {
			got = append(got, i)
			return nil
		}})
	}

	require.NoError(t, q.Run(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, Stats{Enqueued: 5, Succeeded: 5}, q.Stats())
}

func TestRunSpacesStarts(t *testing.T) {
	interval := 30 * time.Millisecond
	q := New(interval, nil)

	var starts []time.Time
	for i := 0; i < 4; i++ {
		q.Enqueue(Task{Name: "publish", Run: func(context.Context) error {
			starts = append(starts, time.Now())
			return nil
		}})
	}

	require.NoError(t, q.Run(context.Background()))
	require.Len(t, starts, 4)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), interval, "gap %d", i)
	}
}

func TestRunNeverOverlaps(t *testing.T) {
	q := New(time.Millisecond, nil)

	var inFlight, maxInFlight int32
	body := func(context.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}
	for i := 0; i < 10; i++ {
		q.Enqueue(Task{Name: "publish", Run: body})
	}

	// Two concurrent drains must still run tasks one at a time
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.Run(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, 10, q.Stats().Succeeded)
}

func TestRunContinuesAfterFailure(t *testing.T) {
	var failed []string
	q := New(0, nil, WithFailureFunc(func(task Task, err error) {
		failed = append(failed, task.Key)
	}))

	var ran []string
	q.Enqueue(Task{Name: "publish", Key: "a", Run: func(context.Context) error {
		ran = append(ran, "a")
		return errors.New("sink down")
	}})
	q.Enqueue(Task{Name: "publish", Key: "b", Run: func(context.Context) error {
		ran = append(ran, "b")
		panic("boom")
	}})
	q.Enqueue(Task{Name: "close", Key: "c", Run: func(context.Context) error {
		ran = append(ran, "c")
		return nil
	}})
	q.Enqueue(Task{Name: "close", Key: "d"})

	require.NoError(t, q.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, []string{"a", "b", "d"}, failed)
	assert.Equal(t, Stats{Enqueued: 4, Succeeded: 1, Failed: 3}, q.Stats())
}

func TestEnqueueDuringRun(t *testing.T) {
	q := New(0, nil)

	var ran []string
	q.Enqueue(Task{Name: "publish", Run: func(context.Context) error {
		ran = append(ran, "first")
		q.Enqueue(Task{Name: "close", Run: func(context.Context) error {
			ran = append(ran, "second")
			return nil
		}})
		return nil
	}})

	require.NoError(t, q.Run(context.Background()))
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestRunStopsOnCancel(t *testing.T) {
	q := New(time.Hour, nil)
	ran := 0
	for i := 0; i < 3; i++ {
		q.Enqueue(Task{Name: "publish", Run: func(context.Context) error {
			ran++
			return nil
		}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ran, "only the first task starts before the pacer blocks")
	assert.Equal(t, 2, q.Len(), "remaining tasks stay queued")
}

func TestRunEmpty(t *testing.T) {
	assert.NoError(t, New(time.Hour, nil).Run(context.Background()))
}
