package models

import (
	"time"

	"github.com/google/uuid"
)

type SightingKind string

const (
	SightingRecognized SightingKind = "recognized"
	SightingEnrolled   SightingKind = "enrolled"
)

// Sighting is one persisted recognition event: a known identity seen on the
// stream, or the moment an identity was enrolled.
type Sighting struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	IdentityID uuid.UUID    `json:"identity_id" db:"identity_id"`
	Kind       SightingKind `json:"kind" db:"kind"`
	Distance   float32      `json:"distance" db:"distance"`
	BBox       [4]float32   `json:"bbox" db:"bbox"`
	TrackID    string       `json:"track_id" db:"track_id"`
	Timestamp  time.Time    `json:"timestamp" db:"timestamp"`
}

// Enrollment is the notification emitted exactly once when an unknown face
// is promoted to a stored identity.
type Enrollment struct {
	Identity  Identity  `json:"identity"`
	TrackID   string    `json:"track_id"`
	Timestamp time.Time `json:"timestamp"`
}
