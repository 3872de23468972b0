package executor

import "context"

// Sequential runs jobs one after the other on the calling goroutine.
// It is the default strategy and the reference behavior the pooled
// strategy has to match.
type Sequential struct{}

// NewSequential returns a sequential strategy
func NewSequential() *Sequential {
	return &Sequential{}
}

// Execute runs every job in index order, stopping at the first job
// that panics
func (s *Sequential) Execute(ctx context.Context, n int, job func(ctx context.Context, i int)) error {
	for i := 0; i < n; i++ {
		if err := runJob(ctx, i, job); err != nil {
			return err
		}
	}

	return nil
}
