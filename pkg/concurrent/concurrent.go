package concurrent

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every element of items on its own goroutine, at most
// limit at a time (limit <= 0 means unbounded). It waits for all of them and
// returns the first error encountered; the derived context is cancelled as
// soon as one action fails.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(ctx context.Context, idx int, item T) error) error {
	errGroup, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		errGroup.SetLimit(limit)
	}

	for idx, item := range items {
		errGroup.Go(func() error {
			return action(groupCtx, idx, item)
		})
	}

	return errGroup.Wait()
}

// ParallelFor splits [0, n) into contiguous ranges, runs body over each range
// on the pool and blocks until every range has finished. Must not be called
// from inside a pool task: with a single worker that would deadlock.
func ParallelFor(p *Pool, n int, body func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	if p.Closed() {
		return ErrPoolClosed
	}

	chunks := p.Workers() * 4
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks

	futures := make([]*Future[struct{}], 0, chunks)
	var errs []error
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		f, err := Enqueue(p, func() (struct{}, error) {
			body(lo, hi)
			return struct{}{}, nil
		})
		if err != nil {
			errs = append(errs, err)
			break
		}
		futures = append(futures, f)
	}

	for _, f := range futures {
		if _, err := f.Get(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
