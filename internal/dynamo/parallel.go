package dynamo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelFor runs fn over [0, n) split into contiguous chunks on at most
// workers goroutines. Ranges below minChunk run inline. The first error,
// or ctx's error, is returned once all started chunks finish.
func ParallelFor(ctx context.Context, n, minChunk, workers int, fn func(start, end int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, n)
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		s := start
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(s, end)
		})
	}

	return g.Wait()
}
