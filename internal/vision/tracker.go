package vision

import (
	"fmt"
	"sync"
)

// IoUTracker assigns stable string IDs to face boxes across consecutive
// frames by greedy IoU association. IDs are presentation-level only:
// recognition never keys identity off a track ID.
type IoUTracker struct {
	mu     sync.Mutex
	tracks []*trackState
	nextID int
	minIoU float32
	maxAge int
}

type trackState struct {
	id     string
	bbox   [4]float32
	missed int // processed frames since last association
}

// NewIoUTracker creates a tracker. Boxes overlapping a live track by at
// least minIoU inherit its ID; tracks unseen for more than maxAge
// processed frames are dropped.
func NewIoUTracker(minIoU float64, maxAge int) *IoUTracker {
	if minIoU <= 0 {
		minIoU = 0.3
	}
	if maxAge <= 0 {
		maxAge = 30
	}
	return &IoUTracker{
		minIoU: float32(minIoU),
		maxAge: maxAge,
	}
}

// Assign returns one track ID per box, aligned with the input order.
// Each call represents one processed frame.
func (t *IoUTracker) Assign(boxes [][4]float32) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tr := range t.tracks {
		tr.missed++
	}

	ids := make([]string, len(boxes))
	claimed := make(map[*trackState]bool, len(t.tracks))

	for i, box := range boxes {
		var (
			best    *trackState
			bestIoU = t.minIoU
		)
		for _, tr := range t.tracks {
			if claimed[tr] {
				continue
			}
			if v := iou(box, tr.bbox); v >= bestIoU {
				bestIoU = v
				best = tr
			}
		}

		if best != nil {
			best.bbox = box
			best.missed = 0
			claimed[best] = true
			ids[i] = best.id
			continue
		}

		t.nextID++
		tr := &trackState{id: fmt.Sprintf("t%d", t.nextID), bbox: box}
		t.tracks = append(t.tracks, tr)
		claimed[tr] = true
		ids[i] = tr.id
	}

	live := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.missed <= t.maxAge {
			live = append(live, tr)
		}
	}
	t.tracks = live

	return ids
}

// Len returns the number of live tracks.
func (t *IoUTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}
