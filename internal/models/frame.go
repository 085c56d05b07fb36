package models

import (
	"time"

	"github.com/google/uuid"
)

// Frame is one decoded unit of the input stream. JPEG holds the raw encoded
// image and is never serialized into events.
type Frame struct {
	Index     uint64    `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	JPEG      []byte    `json:"-"`
}

// Face is one localized, encoded face before identity matching. Crop holds
// the JPEG of the face region, used as the enrollment reference image.
type Face struct {
	BBox       [4]float32 `json:"bbox"`
	Confidence float32    `json:"confidence"`
	Descriptor []float32  `json:"-"`
	Crop       []byte     `json:"-"`
}

// MatchResult is the outcome of matching one descriptor against the
// known-identity index.
type MatchResult struct {
	Known    bool        `json:"known"`
	ID       uuid.UUID   `json:"id,omitempty"`
	Label    Label       `json:"label,omitempty"`
	Access   AccessLevel `json:"access,omitempty"`
	Distance float32     `json:"distance"`
}

// Observation is one face found in a processed frame, paired with the
// identity verdict for its descriptor.
type Observation struct {
	TrackID    string      `json:"track_id"`
	BBox       [4]float32  `json:"bbox"` // x1, y1, x2, y2
	Confidence float32     `json:"confidence"`
	Known      bool        `json:"known"`
	IdentityID *uuid.UUID  `json:"identity_id,omitempty"`
	Label      Label       `json:"label,omitempty"`
	Access     AccessLevel `json:"access,omitempty"`
	Distance   float32     `json:"distance,omitempty"`
	Enrolled   bool        `json:"enrolled,omitempty"` // this observation created the identity
}

// FrameResult pairs a frame with its observations, in input order.
// Sampled is false for frames passed through without recognition; those
// carry no observations.
type FrameResult struct {
	Frame        Frame         `json:"frame"`
	Sampled      bool          `json:"sampled"`
	Observations []Observation `json:"observations"`
}
