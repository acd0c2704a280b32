package parallel

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Result is the per-unit outcome of a bounded run. Units never abort their
// siblings; every unit's success or failure is observed independently.
type Result[O any] struct {
	Index int
	Value O
	Err   error
}

// Map runs fn over every input with at most bound units in flight and
// collects one Result per input, in input order. Both the account worker
// pool and the creative lookup gate are this primitive with different
// bounds.
func Map[I, O any](ctx context.Context, bound int, in []I, fn func(ctx context.Context, item I) (O, error)) []Result[O] {
	if bound < 1 {
		bound = 1
	}

	sem := semaphore.NewWeighted(int64(bound))
	out := make([]Result[O], len(in))

	for i, item := range in {
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i] = Result[O]{Index: i, Err: err}
			continue
		}
		go func(i int, item I) {
			defer sem.Release(1)
			v, err := fn(ctx, item)
			out[i] = Result[O]{Index: i, Value: v, Err: err}
		}(i, item)
	}

	// Draining the full weight waits for every in-flight unit.
	if err := sem.Acquire(context.Background(), int64(bound)); err == nil {
		sem.Release(int64(bound))
	}
	return out
}
