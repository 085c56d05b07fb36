package index

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

const hnswMaxNeighbors = 16

// HNSW is the graph-backed NearestFinder for deployments whose identity set
// outgrows the flat scan. Search is approximate: distances are recomputed
// exactly from the returned node, but equal-distance candidates come back
// in graph order rather than smallest-ID order.
type HNSW struct {
	mu      sync.RWMutex
	dim     int
	graph   *hnsw.Graph[string]
	entries map[string]Entry
}

func NewHNSW(dim int, identities []models.Identity) (*HNSW, error) {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	h := &HNSW{
		dim:     dim,
		graph:   g,
		entries: make(map[string]Entry, len(identities)),
	}
	for _, ident := range identities {
		if err := h.Insert(ident); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *HNSW) Insert(ident models.Identity) error {
	if len(ident.Descriptor) != h.dim {
		return ErrDimensionMismatch
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := ident.ID.String()
	h.graph.Add(hnsw.MakeNode(key, ident.Descriptor))
	h.entries[key] = Entry{
		ID:     ident.ID,
		Label:  ident.Label,
		Access: ident.Access,
	}
	return nil
}

func (h *HNSW) Nearest(descriptor []float32) (Entry, float32, bool) {
	if len(descriptor) != h.dim {
		return Entry{}, 0, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return Entry{}, 0, false
	}
	neighbors := h.graph.Search(descriptor, 1)
	if len(neighbors) == 0 {
		return Entry{}, 0, false
	}
	n := neighbors[0]
	return h.entries[n.Key], euclidean(descriptor, n.Value), true
}

func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
