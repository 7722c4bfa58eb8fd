package download

import (
	"errors"
)

var (
	// ErrMissingParts means at least one part file the plan expects is absent
	// or empty, so there is nothing coherent to merge.
	ErrMissingParts = errors.New("one or more part files are missing or empty")

	// ErrNoSources means a source ring was asked for a pick when every
	// source had already been excluded.
	ErrNoSources = errors.New("no sources left to try")
)
