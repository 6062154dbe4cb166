// Package batch runs work over a slice in fixed-size concurrent groups with
// a pause between groups.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options controls batch sizing and pacing.
type Options struct {
	Size  int
	Pause time.Duration
}

// Outcome is the per-item result of Process.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Process calls fn for every item. Items of one batch run concurrently;
// batches run sequentially with opts.Pause between them. Outcomes are
// returned in input order. A failing item never affects its siblings.
// If ctx ends, unprocessed items are left with ctx.Err().
func Process[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T) (R, error)) []Outcome[R] {
	size := opts.Size
	if size <= 0 {
		size = len(items)
	}
	out := make([]Outcome[R], len(items))

	for start := 0; start < len(items); start += size {
		if start > 0 {
			if err := sleep(ctx, opts.Pause); err != nil {
				fill(out[start:], err)
				return out
			}
		}
		if err := ctx.Err(); err != nil {
			fill(out[start:], err)
			return out
		}

		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := fn(ctx, items[i])
				out[i] = Outcome[R]{Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return out
}

func fill[R any](outs []Outcome[R], err error) {
	for i := range outs {
		outs[i].Err = err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
