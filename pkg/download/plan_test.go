package download

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// assertPlanInvariants checks what must hold for any plan: parts indexed in
// file order, contiguous, non-empty, covering [0, totalSize) exactly.
func assertPlanInvariants(t *testing.T, plan *Plan, totalSize int64) {
	t.Helper()
	require.NotEmpty(t, plan.Parts)
	assert.Equal(t, totalSize, plan.TotalSize)
	assert.EqualValues(t, 0, plan.Parts[0].Start)
	assert.Equal(t, totalSize-1, plan.Parts[len(plan.Parts)-1].End)

	var covered int64
	for i, part := range plan.Parts {
		assert.Equal(t, i, part.Index)
		assert.Positive(t, part.Len(), "part %d must not be empty", i)
		if i > 0 {
			assert.Equal(t, plan.Parts[i-1].End+1, part.Start, "part %d must start where part %d ends", i, i-1)
		}
		covered += part.Len()
	}
	assert.Equal(t, totalSize, covered)
}

func TestPlanPartsByCount(t *testing.T) {
	tc := []struct {
		name      string
		totalSize int64
		numParts  int
		wantLens  []int64
	}{
		{
			name:      "even split with remainder on last",
			totalSize: 10,
			numParts:  3,
			wantLens:  []int64{3, 3, 4},
		},
		{
			name:      "exact division",
			totalSize: 10_000_000,
			numParts:  4,
			wantLens:  []int64{2_500_000, 2_500_000, 2_500_000, 2_500_000},
		},
		{
			name:      "more parts than bytes clamps to one byte per part",
			totalSize: 5,
			numParts:  10,
			wantLens:  []int64{1, 1, 1, 1, 1},
		},
		{
			name:      "single byte",
			totalSize: 1,
			numParts:  8,
			wantLens:  []int64{1},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			mode := ByCount(tt.numParts)
			mode.MinSizeForParallel = 1
			plan, err := PlanParts(tt.totalSize, mode)
			require.NoError(t, err)
			assertPlanInvariants(t, plan, tt.totalSize)

			require.Len(t, plan.Parts, len(tt.wantLens))
			for i, want := range tt.wantLens {
				assert.Equal(t, want, plan.Parts[i].Len(), "part %d", i)
			}
		})
	}
}

func TestPlanPartsByChunkSize(t *testing.T) {
	tc := []struct {
		name      string
		totalSize int64
		chunkSize int64
		wantLens  []int64
	}{
		{
			name:      "remainder becomes a shorter last part",
			totalSize: 10,
			chunkSize: 3,
			wantLens:  []int64{3, 3, 3, 1},
		},
		{
			name:      "exact division yields no empty trailing part",
			totalSize: 9,
			chunkSize: 3,
			wantLens:  []int64{3, 3, 3},
		},
		{
			name:      "chunk larger than file",
			totalSize: 10,
			chunkSize: 50,
			wantLens:  []int64{10},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			mode := ByChunkSize(tt.chunkSize)
			mode.MinSizeForParallel = 1
			plan, err := PlanParts(tt.totalSize, mode)
			require.NoError(t, err)
			assertPlanInvariants(t, plan, tt.totalSize)

			require.Len(t, plan.Parts, len(tt.wantLens))
			for i, want := range tt.wantLens {
				assert.Equal(t, want, plan.Parts[i].Len(), "part %d", i)
			}
		})
	}
}

func TestPlanPartsSmallFileBecomesSinglePart(t *testing.T) {
	tc := []struct {
		name      string
		totalSize int64
		wantParts int
	}{
		{name: "below threshold", totalSize: DefaultMinSizeForParallel - 1, wantParts: 1},
		{name: "at threshold", totalSize: DefaultMinSizeForParallel, wantParts: 4},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanParts(tt.totalSize, ByCount(4))
			require.NoError(t, err)
			assertPlanInvariants(t, plan, tt.totalSize)
			assert.Len(t, plan.Parts, tt.wantParts)
		})
	}
}

func TestPlanPartsRejectsBadModes(t *testing.T) {
	tc := []struct {
		name      string
		totalSize int64
		mode      PartitionMode
	}{
		{name: "zero size", totalSize: 0, mode: ByCount(4)},
		{name: "negative size", totalSize: -1, mode: ByCount(4)},
		{name: "neither count nor chunk", totalSize: 10_000, mode: PartitionMode{}},
		{name: "both count and chunk", totalSize: 10_000, mode: PartitionMode{NumParts: 4, ChunkSize: 100}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanParts(tt.totalSize, tt.mode)
			assert.Error(t, err)
		})
	}
}

func TestValidatePartIndex(t *testing.T) {
	plan, err := PlanParts(10_000, ByCount(4))
	require.NoError(t, err)

	assert.NoError(t, plan.ValidatePartIndex(0))
	assert.NoError(t, plan.ValidatePartIndex(3))
	assert.Error(t, plan.ValidatePartIndex(4))
	assert.Error(t, plan.ValidatePartIndex(-1))
}

func TestArtifactPath(t *testing.T) {
	part := Part{Index: 3, Start: 300, End: 399}
	assert.Equal(t, "weights.bin.part3", part.ArtifactPath("weights.bin"))
}
