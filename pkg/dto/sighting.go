package dto

import "github.com/google/uuid"

type SightingResponse struct {
	ID         uuid.UUID  `json:"id"`
	IdentityID uuid.UUID  `json:"identity_id"`
	Kind       string     `json:"kind"`
	Distance   float32    `json:"distance,omitempty"`
	BBox       [4]float32 `json:"bbox"`
	TrackID    string     `json:"track_id,omitempty"`
	Timestamp  string     `json:"timestamp"`
}

type SightingListResponse struct {
	Sightings []SightingResponse `json:"sightings"`
	Total     int                `json:"total"`
}
