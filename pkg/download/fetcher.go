package download

import (
	"context"
	"fmt"
	"os"

	"github.com/coget/coget/pkg/client"
	"github.com/coget/coget/pkg/logging"
)

// DefaultMaxAttempts is how often a part is tried before it is given up on.
const DefaultMaxAttempts = 5

// State tracks a part through its download lifecycle.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the terminal result of fetching one part.
type Outcome struct {
	Part     Part
	State    State
	Attempts int
	// Err is the error of the last attempt when State is StateExhausted.
	Err error
}

// Fetcher downloads single parts into their artifact files with bounded
// retries. One Fetcher, and one underlying client, is shared by every
// worker of a run.
type Fetcher struct {
	Client      *client.HTTPClient
	Sources     *Sources
	MaxAttempts int
}

func (f *Fetcher) maxAttempts() int {
	if f.MaxAttempts > 0 {
		return f.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Fetch drives one part to a terminal state. Every attempt rewrites the
// artifact from scratch and removes it again on failure, so after Fetch
// returns the artifact exists exactly when the outcome is StateSucceeded.
// Fetch touches no path other than artifactPath.
func (f *Fetcher) Fetch(ctx context.Context, part Part, artifactPath string) Outcome {
	logger := logging.GetLogger()

	outcome := Outcome{Part: part, State: StatePending}
	tried := make([]int, 0, f.Sources.Count())
	for attempt := 1; attempt <= f.maxAttempts(); attempt++ {
		outcome.State = StateAttempting
		outcome.Attempts = attempt

		// Once every source has been tried, start a fresh cycle.
		if len(tried) >= f.Sources.Count() {
			tried = tried[:0]
		}
		bucket, err := f.Sources.Pick(part.Index, tried...)
		if err != nil {
			outcome.State = StateExhausted
			outcome.Err = err
			return outcome
		}
		tried = append(tried, bucket)
		url := f.Sources.URL(bucket)

		if err := f.attempt(ctx, url, part, artifactPath); err != nil {
			outcome.Err = err
			logger.Warn().
				Err(err).
				Int("part", part.Index).
				Int("attempt", attempt).
				Str("url", url).
				Msg("part attempt failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		outcome.State = StateSucceeded
		outcome.Err = nil
		return outcome
	}
	outcome.State = StateExhausted
	return outcome
}

func (f *Fetcher) attempt(ctx context.Context, url string, part Part, artifactPath string) error {
	logger := logging.GetLogger()

	file, err := os.Create(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to create part file %s: %w", artifactPath, err)
	}
	status, err := f.Client.FetchRange(ctx, url, part.Start, part.End, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(artifactPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn().Err(removeErr).Str("path", artifactPath).Msg("failed to remove partial part file")
		}
		return err
	}
	logger.Debug().
		Int("part", part.Index).
		Int("status", status).
		Int64("start", part.Start).
		Int64("end", part.End).
		Msg("part complete")
	return nil
}
