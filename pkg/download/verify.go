package download

import (
	"os"

	"github.com/coget/coget/pkg/logging"
)

// SlackBytes is how far below its expected length a part file may fall
// before it counts as undersized.
const SlackBytes int64 = 1_000_000

// Verdict summarizes the state of a plan's part files on disk.
type Verdict int

const (
	// AllGood: every part present at (or within slack of) its expected size.
	AllGood Verdict = iota
	// UndersizedButPresent: every part present but at least one is more
	// than SlackBytes short. Merging may still be useful, the parts are
	// kept for diagnosis.
	UndersizedButPresent
	// SomeMissing: at least one part file is absent or empty. Nothing
	// coherent can be merged.
	SomeMissing
)

func (v Verdict) String() string {
	switch v {
	case AllGood:
		return "all good"
	case UndersizedButPresent:
		return "undersized but present"
	case SomeMissing:
		return "some missing"
	default:
		return "unknown"
	}
}

// VerifyParts stats every artifact the plan expects and reports the state
// of the set as a whole. A missing part dominates an undersized one; the
// scan always covers all parts so every problem gets logged, not just the
// first.
func VerifyParts(output string, plan *Plan) Verdict {
	logger := logging.GetLogger()

	var missing, undersized bool
	for _, part := range plan.Parts {
		path := part.ArtifactPath(output)
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			logger.Warn().Int("part", part.Index).Str("path", path).Msg("part file missing")
			missing = true
			continue
		}
		if info.Size()+SlackBytes < part.Len() {
			logger.Warn().
				Int("part", part.Index).
				Int64("size", info.Size()).
				Int64("expected", part.Len()).
				Str("path", path).
				Msg("part file undersized")
			undersized = true
		}
	}

	switch {
	case missing:
		return SomeMissing
	case undersized:
		return UndersizedButPresent
	default:
		return AllGood
	}
}
