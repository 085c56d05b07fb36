package index

import (
	"bytes"
	"sync"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

type flatEntry struct {
	Entry
	descriptor []float32
}

// Flat is a linear-scan index. At the identity counts a household or office
// accumulates (tens to low hundreds) a full scan per descriptor is cheap,
// and it gives an exact, fully deterministic answer: equal distances
// resolve to the smaller identity ID.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	entries []flatEntry
}

func NewFlat(dim int, identities []models.Identity) (*Flat, error) {
	f := &Flat{dim: dim, entries: make([]flatEntry, 0, len(identities))}
	for _, ident := range identities {
		if err := f.Insert(ident); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Flat) Insert(ident models.Identity) error {
	if len(ident.Descriptor) != f.dim {
		return ErrDimensionMismatch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, flatEntry{
		Entry: Entry{
			ID:     ident.ID,
			Label:  ident.Label,
			Access: ident.Access,
		},
		descriptor: ident.Descriptor,
	})
	return nil
}

func (f *Flat) Nearest(descriptor []float32) (Entry, float32, bool) {
	if len(descriptor) != f.dim {
		return Entry{}, 0, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.entries) == 0 {
		return Entry{}, 0, false
	}

	best := -1
	bestSq := 0.0
	for i := range f.entries {
		sq := sqEuclidean(descriptor, f.entries[i].descriptor)
		switch {
		case best < 0 || sq < bestSq:
			best, bestSq = i, sq
		case sq == bestSq && lessID(f.entries[i].ID, f.entries[best].ID):
			best = i
		}
	}
	return f.entries[best].Entry, euclidean(descriptor, f.entries[best].descriptor), true
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
