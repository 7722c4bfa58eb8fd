package download

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/coget/coget/pkg/client"
	"github.com/coget/coget/pkg/extract"
	"github.com/coget/coget/pkg/logging"
)

// DefaultWorkers is the fetch concurrency used when none is configured.
const DefaultWorkers = 8

// Resource identifies what to download: the primary URL plus any mirrors
// serving identical bytes. A Resource never changes during an invocation.
type Resource struct {
	URL     string
	Mirrors []string
}

// Options configures a Downloader.
type Options struct {
	// Workers caps how many parts are fetched concurrently. Zero means
	// DefaultWorkers.
	Workers int
	// MaxAttempts bounds the tries per part. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Mode selects how the remote file is partitioned.
	Mode PartitionMode
	// Extract unpacks the merged output when it is an archive.
	Extract bool
	// ExtractOverwrite lets extraction replace files already present in
	// the destination.
	ExtractOverwrite bool
	Client           client.Options
}

// Downloader runs whole downloads: probe, plan, fetch, verify, merge. The
// single transport client is built up front and shared by every worker.
type Downloader struct {
	Client *client.HTTPClient
	Options
}

func NewDownloader(opts Options) *Downloader {
	return &Downloader{
		Client:  client.NewHTTPClient(opts.Client),
		Options: opts,
	}
}

func (d *Downloader) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return DefaultWorkers
}

// Run performs a full download of res into output: every part fetched,
// verified against the plan, and merged in order. Part files disappear only
// after a merge of a fully-sized set.
func (d *Downloader) Run(ctx context.Context, res Resource, output string) error {
	logger := logging.GetLogger()
	defer d.Client.Close()

	plan, err := d.plan(ctx, res)
	if err != nil {
		return err
	}

	fetcher := d.fetcher(res)
	outcomes := fetcher.FetchAll(ctx, plan, output, d.workers())
	for _, outcome := range outcomes {
		if outcome.State != StateSucceeded {
			logger.Warn().
				Int("part", outcome.Part.Index).
				Int("attempts", outcome.Attempts).
				Err(outcome.Err).
				Msg("giving up on part")
		}
	}

	return d.finish(plan, output)
}

// RunSinglePart downloads only the part at index, leaving its artifact on
// disk for a later merge-only invocation. The part's failure is the
// invocation's failure.
func (d *Downloader) RunSinglePart(ctx context.Context, res Resource, output string, index int) error {
	defer d.Client.Close()

	// In count mode the bounds are known before any network traffic.
	if d.Mode.NumParts > 0 && (index < 0 || index >= d.Mode.NumParts) {
		return fmt.Errorf("part index %d out of range: plan has %d parts", index, d.Mode.NumParts)
	}

	plan, err := d.plan(ctx, res)
	if err != nil {
		return err
	}
	if err := plan.ValidatePartIndex(index); err != nil {
		return err
	}

	part := plan.Parts[index]
	outcome := d.fetcher(res).Fetch(ctx, part, part.ArtifactPath(output))
	if outcome.State != StateSucceeded {
		return fmt.Errorf("part %d failed after %d attempts: %w", part.Index, outcome.Attempts, outcome.Err)
	}
	return nil
}

// RunMergeOnly merges part files produced by earlier invocations. The
// remote file is still probed so the derived plan, and with it the expected
// part set, is identical to the one that produced the parts.
func (d *Downloader) RunMergeOnly(ctx context.Context, res Resource, output string) error {
	defer d.Client.Close()

	plan, err := d.plan(ctx, res)
	if err != nil {
		return err
	}
	return d.finish(plan, output)
}

func (d *Downloader) fetcher(res Resource) *Fetcher {
	return &Fetcher{
		Client:      d.Client,
		Sources:     NewSources(res.URL, res.Mirrors...),
		MaxAttempts: d.MaxAttempts,
	}
}

func (d *Downloader) plan(ctx context.Context, res Resource) (*Plan, error) {
	logger := logging.GetLogger()

	size, err := d.Client.ProbeSize(ctx, res.URL)
	if err != nil {
		return nil, err
	}
	plan, err := PlanParts(size, d.Mode)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("url", res.URL).
		Str("size", humanize.Bytes(uint64(size))).
		Int("parts", len(plan.Parts)).
		Str("chunk_size", humanize.Bytes(uint64(plan.ChunkSize))).
		Int("workers", d.workers()).
		Msg("download plan")
	return plan, nil
}

// finish verifies, merges and cleans up. A set with missing parts refuses
// to merge and keeps what completed; an undersized set merges but keeps its
// part files for diagnosis; a fully-sized set merges and removes them.
func (d *Downloader) finish(plan *Plan, output string) error {
	logger := logging.GetLogger()

	verdict := VerifyParts(output, plan)
	if verdict == SomeMissing {
		return fmt.Errorf("refusing to merge %s: %w", output, ErrMissingParts)
	}
	if err := MergeParts(output, plan); err != nil {
		return err
	}
	if verdict == AllGood {
		RemoveParts(output, plan)
	} else {
		logger.Warn().Str("path", output).Msg("merged undersized parts, keeping part files")
	}
	logger.Debug().Str("path", output).Int64("size", plan.TotalSize).Msg("merge complete")

	if d.Extract {
		destDir := filepath.Dir(output)
		if err := extract.ExtractFile(output, destDir, d.ExtractOverwrite); err != nil {
			return fmt.Errorf("failed to extract %s: %w", output, err)
		}
		logger.Debug().Str("path", output).Str("dest", destDir).Msg("extract complete")
	}
	return nil
}
