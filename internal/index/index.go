// Package index holds the in-memory nearest-neighbor structures the
// recognition loop matches descriptors against. The flat index is the
// reference implementation; the HNSW variant trades its exact tie-break
// order for sublinear search on large identity sets.
package index

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

var ErrDimensionMismatch = errors.New("index: descriptor dimension mismatch")

// Entry identifies one indexed identity.
type Entry struct {
	ID     uuid.UUID
	Label  models.Label
	Access models.AccessLevel
}

// NearestFinder answers nearest-identity queries and accepts live inserts
// as enrollment grows the identity set.
type NearestFinder interface {
	// Nearest returns the closest indexed identity and its Euclidean
	// distance to the query. ok is false when the index is empty.
	Nearest(descriptor []float32) (entry Entry, distance float32, ok bool)
	Insert(ident models.Identity) error
	Len() int
}

// euclidean returns the L2 distance between two equal-length vectors.
// Accumulation runs in float64 so the result does not depend on summation
// luck at float32 precision.
func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func sqEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
