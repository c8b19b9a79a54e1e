package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const defaultConcurrency = 4

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// runBatches runs fn over chunks of items, at most concurrency at a time,
// and concatenates the results in input order. The first failure cancels
// the remaining chunks.
func runBatches[I, O any](ctx context.Context, items []I, size, concurrency int, fn func(context.Context, []I) ([]O, error)) ([]O, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	chunks := chunk(items, size)
	results := make([][]O, len(chunks))
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	var previewed atomic.Bool
	var acquireErr error
	for i, c := range chunks {
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out, err := fn(gctx, c)
			switch {
			case errors.Is(err, errDryRun):
				previewed.Store(true)
				return nil
			case err != nil && len(chunks) > 1:
				return fmt.Errorf("batch %d of %d: %w", i+1, len(chunks), err)
			case err != nil:
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if acquireErr != nil {
		return nil, acquireErr
	}
	if previewed.Load() {
		return nil, errDryRun
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]O, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
