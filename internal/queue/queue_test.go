package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	q := New(WithMaxConcurrent(2), WithMinDelay(0))
	defer q.Close()

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Run(context.Background(), func(ctx context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, uint64(10), q.Stats().Dispatched)
	assert.Equal(t, 0, q.Stats().Active)
}

func TestRun_SpacesDispatches(t *testing.T) {
	const minDelay = 20 * time.Millisecond

	var mu sync.Mutex
	var stamps []time.Time
	q := New(
		WithMaxConcurrent(4),
		WithMinDelay(minDelay),
		WithDispatchHook(func(at time.Time) {
			mu.Lock()
			stamps = append(stamps, at)
			mu.Unlock()
		}),
	)
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Run(context.Background(), func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 5)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, minDelay, "gap %d", i)
	}
}

func TestRun_DispatchesInSubmissionOrder(t *testing.T) {
	// One slot and a blocker ensure every later call is waiting in line.
	q := New(WithMaxConcurrent(1), WithMinDelay(0))
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = q.Run(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		// Let each submitter block on the queue before the next one starts.
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRun_ErrorDoesNotAffectOthers(t *testing.T) {
	q := New(WithMinDelay(0))
	defer q.Close()

	boom := errors.New("boom")
	err := q.Run(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = q.Run(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRun_PanicBecomesError(t *testing.T) {
	q := New(WithMinDelay(0))
	defer q.Close()

	err := q.Run(context.Background(), func(ctx context.Context) error { panic("bad input") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")

	assert.NoError(t, q.Run(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestRun_CancelledWhileQueuedIsDropped(t *testing.T) {
	q := New(WithMaxConcurrent(1), WithMinDelay(0))
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Run(ctx, func(ctx context.Context) error {
			ran.Store(true)
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)

	// A later call still goes through and the dropped task never ran.
	require.NoError(t, q.Run(context.Background(), func(ctx context.Context) error { return nil }))
	assert.False(t, ran.Load())
}

func TestDo_ReturnsValue(t *testing.T) {
	q := New(WithMinDelay(0))
	defer q.Close()

	v, err := Do(context.Background(), q, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	v, err = Do(context.Background(), q, func(ctx context.Context) (string, error) {
		return "partial", errors.New("failed")
	})
	assert.Error(t, err)
	assert.Empty(t, v)
}

func TestRun_AfterClose(t *testing.T) {
	q := New()
	q.Close()

	err := q.Run(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStats_LastDispatch(t *testing.T) {
	q := New(WithMinDelay(0))
	defer q.Close()

	assert.True(t, q.Stats().LastDispatch.IsZero())
	before := time.Now()
	require.NoError(t, q.Run(context.Background(), func(ctx context.Context) error { return nil }))
	assert.False(t, q.Stats().LastDispatch.Before(before))
}
