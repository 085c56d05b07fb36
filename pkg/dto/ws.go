package dto

import "github.com/google/uuid"

// WSMessage is one WebSocket push. Type is "frame" for per-frame
// recognition results and "enrollment" when a new identity is created.
type WSMessage struct {
	Type       string           `json:"type"`
	Frame      *FrameUpdate     `json:"frame,omitempty"`
	Enrollment *EnrollmentEvent `json:"enrollment,omitempty"`
}

// FrameUpdate carries recognition output for one frame. Frames skipped
// by sampling are pushed too, with Sampled false and no faces, so
// overlay clients stay in step with the video.
type FrameUpdate struct {
	Index     uint64       `json:"index"`
	Timestamp string       `json:"timestamp"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Sampled   bool         `json:"sampled"`
	Faces     []FaceUpdate `json:"faces,omitempty"`
}

type FaceUpdate struct {
	TrackID     string     `json:"track_id,omitempty"`
	BBox        [4]float32 `json:"bbox"`
	Confidence  float32    `json:"confidence"`
	Known       bool       `json:"known"`
	IdentityID  *uuid.UUID `json:"identity_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Access      string     `json:"access,omitempty"`
	Distance    float32    `json:"distance"`
	Enrolled    bool       `json:"enrolled,omitempty"`
}

type EnrollmentEvent struct {
	Identity  IdentityResponse `json:"identity"`
	TrackID   string           `json:"track_id,omitempty"`
	Timestamp string           `json:"timestamp"`
}
