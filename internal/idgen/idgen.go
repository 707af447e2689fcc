// Package idgen provides the thread-safe universally-unique id generator
// used for clientRequestUid and composite-frame identifiers.
package idgen

import "github.com/google/uuid"

// New returns a fresh, high-entropy unique identifier. uuid.New is
// already safe for concurrent use; this wrapper exists so call sites
// depend on one seam rather than importing the uuid package directly.
func New() string {
	return uuid.New().String()
}

// Derive returns a fresh identifier for a value derived from parent, used
// when binning an IngestionFrame into composite frames: each composite
// receives its own uuid rather than a deterministic function of the
// parent, since a derived id must be universally unique rather than
// merely distinct from its siblings.
func Derive(parent string) string {
	_ = parent
	return New()
}
