package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/passguard/passguard-oss/pkg/domain"
)

// defaultBatchParallelism bounds concurrent evaluations in a batch. The
// breach client serializes its lookups anyway, so a small bound keeps
// scoring CPU-parallel without piling up blocked goroutines.
const defaultBatchParallelism = 8

// EvaluateBatch scores every password and returns one report per input,
// index-aligned. Items are isolated: a failure or cancellation marks the
// affected reports instead of failing the batch.
func (e *Engine) EvaluateBatch(ctx context.Context, passwords []string, opts Options) []domain.AggregateReport {
	reports := make([]domain.AggregateReport, len(passwords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchParallelism)

	for i, password := range passwords {
		i, password := i, password
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = domain.AggregateReport{
					DebugDigest: domain.DebugDigest(password),
					Error:       "evaluation cancelled: " + err.Error(),
				}
				return nil
			}
			reports[i] = e.Evaluate(gctx, password, opts)
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers never return errors
	return reports
}
