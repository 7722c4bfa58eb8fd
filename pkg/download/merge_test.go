package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedArtifacts writes one part file per plan part, filling part i with
// letter i repeated, so merge ordering mistakes are visible in the output.
func seedArtifacts(t *testing.T, output string, plan *Plan) string {
	t.Helper()
	var want strings.Builder
	for _, part := range plan.Parts {
		content := strings.Repeat(string(rune('A'+part.Index)), int(part.Len()))
		require.NoError(t, os.WriteFile(part.ArtifactPath(output), []byte(content), 0644))
		want.WriteString(content)
	}
	return want.String()
}

func smallPlan(t *testing.T, totalSize int64, numParts int) *Plan {
	t.Helper()
	mode := ByCount(numParts)
	mode.MinSizeForParallel = 1
	plan, err := PlanParts(totalSize, mode)
	require.NoError(t, err)
	return plan
}

func TestMergePartsConcatenatesInIndexOrder(t *testing.T) {
	plan := smallPlan(t, 10, 3)
	output := filepath.Join(t.TempDir(), "blob.bin")
	want := seedArtifacts(t, output, plan)

	require.NoError(t, MergeParts(output, plan))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "AAABBBCCCC", string(content))
	assert.Equal(t, want, string(content))
}

func TestMergePartsRemovesOutputOnFailure(t *testing.T) {
	plan := smallPlan(t, 10, 3)
	output := filepath.Join(t.TempDir(), "blob.bin")
	seedArtifacts(t, output, plan)
	require.NoError(t, os.Remove(plan.Parts[1].ArtifactPath(output)))

	err := MergeParts(output, plan)
	require.Error(t, err)
	assert.ErrorContains(t, err, "part1")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "a failed merge must not leave a partial output behind")
}

func TestMergePartsOverwritesExistingOutput(t *testing.T) {
	plan := smallPlan(t, 10, 3)
	output := filepath.Join(t.TempDir(), "blob.bin")
	seedArtifacts(t, output, plan)
	require.NoError(t, os.WriteFile(output, []byte("stale previous content longer than the merge"), 0644))

	require.NoError(t, MergeParts(output, plan))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "AAABBBCCCC", string(content))
}

func TestRemoveParts(t *testing.T) {
	plan := smallPlan(t, 10, 3)
	output := filepath.Join(t.TempDir(), "blob.bin")
	seedArtifacts(t, output, plan)

	RemoveParts(output, plan)

	for _, part := range plan.Parts {
		_, err := os.Stat(part.ArtifactPath(output))
		assert.True(t, os.IsNotExist(err), "part %d must be removed", part.Index)
	}
}
