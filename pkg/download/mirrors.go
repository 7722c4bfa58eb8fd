package download

import (
	"fmt"
	"slices"

	jump "github.com/dgryski/go-jump"
	"github.com/mitchellh/hashstructure/v2"
)

// sourceKey is what gets hashed to assign a part to a source. Tried counts
// sources already ruled out for this part, so each retry reshuffles the
// remaining ring instead of walking it in a fixed order.
type sourceKey struct {
	URL   string
	Part  int
	Tried int
}

// Sources is the ring of base URLs serving identical bytes: the primary
// URL first, then any mirrors. Assignment is deterministic, so repeated
// invocations ask the same source for the same part.
type Sources struct {
	urls []string
}

func NewSources(primary string, mirrors ...string) *Sources {
	urls := make([]string, 0, len(mirrors)+1)
	urls = append(urls, primary)
	urls = append(urls, mirrors...)
	return &Sources{urls: urls}
}

func (s *Sources) Count() int {
	return len(s.urls)
}

// URL returns the base URL for a bucket returned by Pick.
func (s *Sources) URL(bucket int) string {
	return s.urls[bucket]
}

// Pick returns the bucket of the source a part should fetch from, never one
// listed in tried. Pick sorts the tried slice in place.
func (s *Sources) Pick(partIndex int, tried ...int) (int, error) {
	if len(s.urls) == 1 {
		return 0, nil
	}
	if len(tried) >= len(s.urls) {
		return -1, fmt.Errorf("%w: %d sources, %d already tried", ErrNoSources, len(s.urls), len(tried))
	}

	// IgnoreZeroValue keeps existing assignments stable if zero-valued
	// fields are added to the key later. A HashOptions must not be shared,
	// so build a fresh one per call.
	hashopts := &hashstructure.HashOptions{IgnoreZeroValue: true}
	hash, err := hashstructure.Hash(sourceKey{URL: s.urls[0], Part: partIndex, Tried: len(tried)}, hashstructure.FormatV2, hashopts)
	if err != nil {
		return -1, fmt.Errorf("error calculating hash of source key: %w", err)
	}

	// jump is an implementation of Google's Jump Consistent Hash.
	//
	// See http://arxiv.org/abs/1406.2294 for details.
	bucket := int(jump.Hash(hash, len(s.urls)-len(tried)))
	slices.Sort(tried)
	for _, prev := range tried {
		if bucket >= prev {
			bucket++
		}
	}
	return bucket, nil
}
