package download

import (
	"fmt"
)

const (
	// DefaultMinSizeForParallel is the smallest remote file worth splitting.
	// Anything smaller becomes a single-part plan no matter what the
	// partition mode asks for.
	DefaultMinSizeForParallel int64 = 1000

	// MinChunkSize is the floor for user-requested chunk sizes. Requests
	// below it are discarded in favor of count-based partitioning.
	MinChunkSize int64 = 10_000_000
)

// Part is one byte range of the remote file. Ranges are inclusive on both
// ends, matching the HTTP Range header they turn into.
type Part struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes this part covers.
func (p Part) Len() int64 {
	return p.End - p.Start + 1
}

// ArtifactPath returns where this part's bytes live on disk, next to the
// final output. The naming is a contract across invocations: a later
// merge-only run derives the same plan and looks for the same files.
func (p Part) ArtifactPath(output string) string {
	return fmt.Sprintf("%s.part%d", output, p.Index)
}

// Plan is the full partition of a remote file: ordered, contiguous,
// non-overlapping parts covering every byte exactly once.
type Plan struct {
	TotalSize int64
	// ChunkSize is the length shared by every part except possibly the
	// last. Kept for display and diagnostics.
	ChunkSize int64
	Parts     []Part
}

// ValidatePartIndex reports whether index selects a part of this plan.
func (p *Plan) ValidatePartIndex(index int) error {
	if index < 0 || index >= len(p.Parts) {
		return fmt.Errorf("part index %d out of range: plan has %d parts", index, len(p.Parts))
	}
	return nil
}

// PartitionMode selects how a plan splits the remote file. Exactly one of
// NumParts or ChunkSize must be set; the command line resolves competing
// flags before a mode reaches this package.
type PartitionMode struct {
	// NumParts splits the file into this many parts, the last absorbing
	// the division remainder.
	NumParts int
	// ChunkSize splits the file into parts of this many bytes, the last
	// holding whatever remains.
	ChunkSize int64
	// MinSizeForParallel overrides DefaultMinSizeForParallel when positive.
	MinSizeForParallel int64
}

// ByCount returns a mode that splits the file into n parts.
func ByCount(n int) PartitionMode {
	return PartitionMode{NumParts: n}
}

// ByChunkSize returns a mode that splits the file into parts of size bytes.
func ByChunkSize(size int64) PartitionMode {
	return PartitionMode{ChunkSize: size}
}

func (m PartitionMode) minSizeForParallel() int64 {
	if m.MinSizeForParallel > 0 {
		return m.MinSizeForParallel
	}
	return DefaultMinSizeForParallel
}

// PlanParts derives the partition of a file of totalSize bytes. Every part
// in the result is non-empty, parts are indexed in file order, and
// consecutive parts meet exactly. Files below the parallelism threshold
// yield a single-part plan.
func PlanParts(totalSize int64, mode PartitionMode) (*Plan, error) {
	if totalSize <= 0 {
		return nil, fmt.Errorf("cannot plan a download of %d bytes", totalSize)
	}
	if mode.NumParts > 0 && mode.ChunkSize > 0 {
		return nil, fmt.Errorf("partition mode must set part count or chunk size, not both")
	}

	if totalSize < mode.minSizeForParallel() {
		return singlePartPlan(totalSize), nil
	}

	var numParts int64
	switch {
	case mode.ChunkSize > 0:
		// Ceiling division so an exactly-divisible size does not produce
		// an empty trailing part.
		numParts = (totalSize + mode.ChunkSize - 1) / mode.ChunkSize
	case mode.NumParts > 0:
		numParts = int64(mode.NumParts)
	default:
		return nil, fmt.Errorf("partition mode must set part count or chunk size")
	}

	// Never allow an empty part: a file of N bytes supports at most N parts.
	if numParts > totalSize {
		numParts = totalSize
	}
	if numParts == 1 {
		return singlePartPlan(totalSize), nil
	}

	chunk := totalSize / numParts
	if mode.ChunkSize > 0 {
		chunk = mode.ChunkSize
	}

	parts := make([]Part, numParts)
	for i := range parts {
		start := int64(i) * chunk
		end := start + chunk - 1
		if i == len(parts)-1 {
			// The last part absorbs the remainder in count mode and is
			// shorter in chunk-size mode.
			end = totalSize - 1
		}
		parts[i] = Part{Index: i, Start: start, End: end}
	}

	return &Plan{TotalSize: totalSize, ChunkSize: chunk, Parts: parts}, nil
}

func singlePartPlan(totalSize int64) *Plan {
	return &Plan{
		TotalSize: totalSize,
		ChunkSize: totalSize,
		Parts:     []Part{{Index: 0, Start: 0, End: totalSize - 1}},
	}
}
