package dto

import "github.com/google/uuid"

type IdentityResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Placeholder bool      `json:"placeholder"`
	Access      string    `json:"access"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Total      int                `json:"total"`
}
