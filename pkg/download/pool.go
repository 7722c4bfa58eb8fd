package download

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/coget/coget/pkg/logging"
)

// FetchAll downloads every part of the plan with at most workers concurrent
// fetches, returning one terminal outcome per part, indexed like the plan.
// A part exhausting its attempts does not cancel parts still in flight:
// whatever completes stays on disk for a later merge-only invocation.
func (f *Fetcher) FetchAll(ctx context.Context, plan *Plan, output string, workers int) []Outcome {
	logger := logging.GetLogger()

	// Never run more workers than there are parts.
	limit := workers
	if limit <= 0 || limit > len(plan.Parts) {
		limit = len(plan.Parts)
	}
	logger.Debug().Int("parts", len(plan.Parts)).Int("workers", limit).Msg("dispatching part downloads")

	group := &errgroup.Group{}
	group.SetLimit(limit)
	outcomes := make([]Outcome, len(plan.Parts))
	for i, part := range plan.Parts {
		group.Go(func() error {
			// Each goroutine owns outcomes[i] exclusively, no lock needed.
			outcomes[i] = f.Fetch(ctx, part, part.ArtifactPath(output))
			return nil
		})
	}
	// Workers never return errors, failures are recorded in the outcomes.
	_ = group.Wait()
	return outcomes
}
