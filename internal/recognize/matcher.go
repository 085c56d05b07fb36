// Package recognize drives the live identity pipeline: matching descriptors
// against the known set, enrolling faces that stay unmatched past the
// cooldown, and running the frame loop that ties source, encoder and sinks
// together.
package recognize

import (
	"github.com/SYNOVA-LABS/ADA/internal/index"
	"github.com/SYNOVA-LABS/ADA/internal/models"
)

// Matcher decides whether a descriptor belongs to a known identity.
// The verdict is Euclidean distance against the nearest indexed identity;
// a distance equal to the threshold still counts as a match. Threshold and
// metric travel together: the configured value only makes sense for the
// distance the index computes.
type Matcher struct {
	finder    index.NearestFinder
	threshold float32
}

func NewMatcher(finder index.NearestFinder, threshold float32) *Matcher {
	return &Matcher{finder: finder, threshold: threshold}
}

// Match is read-only and deterministic: the same descriptor against the
// same index always yields the same verdict.
func (m *Matcher) Match(descriptor []float32) models.MatchResult {
	entry, dist, ok := m.finder.Nearest(descriptor)
	if !ok || dist > m.threshold {
		return models.MatchResult{Distance: dist}
	}
	return models.MatchResult{
		Known:    true,
		ID:       entry.ID,
		Label:    entry.Label,
		Access:   entry.Access,
		Distance: dist,
	}
}
