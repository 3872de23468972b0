// Package executor runs a batch of independent jobs under a configurable
// concurrency strategy while keeping every result at its submission index.
package executor

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned when the strategy itself fails, as opposed to a
// single job failing
var (
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrJobPanicked     = errors.New("job panicked")
	ErrUnknownStrategy = errors.New("unknown execution strategy")
	ErrInvalidConfig   = errors.New("invalid execution config")
)

// Strategy executes n jobs and blocks until all of them have returned.
// Each job is called exactly once with its index in [0, n).
type Strategy interface {
	Execute(ctx context.Context, n int, job func(ctx context.Context, i int)) error
}

// Map applies fn to every element of in using s and returns the outputs
// in input order, regardless of the order the jobs completed in.
func Map[In, Out any](ctx context.Context, s Strategy, in []In, fn func(ctx context.Context, item In) Out) ([]Out, error) {
	out := make([]Out, len(in))

	err := s.Execute(ctx, len(in), func(ctx context.Context, i int) {
		out[i] = fn(ctx, in[i])
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// runJob calls job, converting a panic into an ErrJobPanicked error
func runJob(ctx context.Context, i int, job func(ctx context.Context, i int)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: job %d: %v", ErrJobPanicked, i, r)
		}
	}()

	job(ctx, i)

	return nil
}
