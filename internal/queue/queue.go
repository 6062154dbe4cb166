// Package queue schedules outbound calls under a concurrency cap and a
// queue-wide minimum spacing between dispatches.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Defaults match the upstream indexer's tolerance.
const (
	DefaultMaxConcurrent = 4
	DefaultMinDelay      = 75 * time.Millisecond
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("request queue closed")

// Task is a unit of work executed by the queue.
type Task func(ctx context.Context) error

// Stats is a snapshot of the scheduling counters.
type Stats struct {
	Active       int
	Dispatched   uint64
	LastDispatch time.Time
}

type job struct {
	ctx    context.Context
	task   Task
	result chan error
}

// Queue admits tasks in FIFO order. A single dispatcher goroutine owns
// admission; tasks then run concurrently, at most maxConcurrent at a time,
// and two dispatches are never closer than minDelay.
type Queue struct {
	maxConcurrent int
	minDelay      time.Duration
	onDispatch    func(time.Time)

	jobs  chan *job
	slots *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	mu           sync.Mutex
	active       int
	dispatched   uint64
	lastDispatch time.Time
}

// Option configures Queue.
type Option func(*Queue)

// WithMaxConcurrent sets the in-flight task cap.
func WithMaxConcurrent(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxConcurrent = n
		}
	}
}

// WithMinDelay sets the minimum spacing between two dispatches.
func WithMinDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.minDelay = d
		}
	}
}

// WithDispatchHook is called by the dispatcher with each dispatch instant.
func WithDispatchHook(fn func(time.Time)) Option {
	return func(q *Queue) {
		q.onDispatch = fn
	}
}

// New creates a queue and starts its dispatcher. Call Close to stop it.
func New(opts ...Option) *Queue {
	q := &Queue{
		maxConcurrent: DefaultMaxConcurrent,
		minDelay:      DefaultMinDelay,
		jobs:          make(chan *job),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.slots = semaphore.NewWeighted(int64(q.maxConcurrent))
	q.ctx, q.cancel = context.WithCancel(context.Background())

	go q.dispatch()
	return q
}

// Run enqueues task and waits for its result. If ctx ends before the task
// is dispatched the task is dropped; once dispatched it receives ctx and is
// expected to return promptly on cancellation.
func (q *Queue) Run(ctx context.Context, task Task) error {
	j := &job{ctx: ctx, task: task, result: make(chan error, 1)}

	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs task on q and returns its value.
func Do[T any](ctx context.Context, q *Queue, task func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := q.Run(ctx, func(ctx context.Context) error {
		v, err := task(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Stats returns a snapshot of the scheduling counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Active:       q.active,
		Dispatched:   q.dispatched,
		LastDispatch: q.lastDispatch,
	}
}

// Close stops admission and waits for in-flight tasks to return.
func (q *Queue) Close() {
	q.cancel()
	<-q.done
	q.wg.Wait()
}

func (q *Queue) dispatch() {
	defer close(q.done)

	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.jobs:
			q.admit(j)
		}
	}
}

// admit blocks the dispatcher until j can start, then starts it.
func (q *Queue) admit(j *job) {
	waitCtx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	if err := q.slots.Acquire(waitCtx, 1); err != nil {
		j.result <- q.admissionErr(err)
		return
	}

	if err := q.awaitSpacing(waitCtx); err != nil {
		q.slots.Release(1)
		j.result <- q.admissionErr(err)
		return
	}

	now := time.Now()
	q.mu.Lock()
	q.active++
	q.dispatched++
	q.lastDispatch = now
	q.mu.Unlock()
	if q.onDispatch != nil {
		q.onDispatch(now)
	}

	q.wg.Add(1)
	go q.execute(j)
}

// awaitSpacing sleeps until minDelay has passed since the last dispatch.
func (q *Queue) awaitSpacing(ctx context.Context) error {
	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	wait := q.minDelay - time.Since(last)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (q *Queue) admissionErr(err error) error {
	if q.ctx.Err() != nil {
		return ErrClosed
	}
	return err
}

func (q *Queue) execute(j *job) {
	defer q.wg.Done()

	err := runTask(j.ctx, j.task)

	q.mu.Lock()
	q.active--
	q.mu.Unlock()
	q.slots.Release(1)

	j.result <- err
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued task panicked: %v", r)
		}
	}()
	return task(ctx)
}
