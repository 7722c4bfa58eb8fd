package download

import (
	"fmt"
	"io"
	"os"

	"github.com/coget/coget/pkg/logging"
)

// MergeParts concatenates the plan's part files into output in strict index
// order. On failure the partially-written output is removed so a broken
// merge never masquerades as a finished download.
func MergeParts(output string, plan *Plan) error {
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", output, err)
	}
	for _, part := range plan.Parts {
		if err := appendPart(out, part.ArtifactPath(output)); err != nil {
			out.Close()
			removeOutput(output)
			return err
		}
	}
	if err := out.Close(); err != nil {
		removeOutput(output)
		return fmt.Errorf("failed to finalize output file %s: %w", output, err)
	}
	return nil
}

func appendPart(out *os.File, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open part file %s: %w", path, err)
	}
	defer in.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to append part file %s: %w", path, err)
	}
	return nil
}

func removeOutput(output string) {
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		logger := logging.GetLogger()
		logger.Warn().Err(err).Str("path", output).Msg("failed to remove partial output file")
	}
}

// RemoveParts deletes the plan's part files after a successful merge.
// Removal is best effort: failures are logged but do not fail the download,
// the merged output is already complete.
func RemoveParts(output string, plan *Plan) {
	logger := logging.GetLogger()
	for _, part := range plan.Parts {
		path := part.ArtifactPath(output)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("failed to remove part file")
		}
	}
}
