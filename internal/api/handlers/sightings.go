package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SYNOVA-LABS/ADA/internal/storage"
	"github.com/SYNOVA-LABS/ADA/pkg/dto"
)

const defaultSightingLimit = 100

type SightingHandler struct {
	store storage.Store
}

func NewSightingHandler(store storage.Store) *SightingHandler {
	return &SightingHandler{store: store}
}

// List returns recent sightings, newest first.
func (h *SightingHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSightingLimit)))
	if limit < 1 {
		limit = defaultSightingLimit
	}

	sightings, err := h.store.RecentSightings(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.SightingListResponse{
		Sightings: make([]dto.SightingResponse, 0, len(sightings)),
		Total:     len(sightings),
	}
	for _, sg := range sightings {
		resp.Sightings = append(resp.Sightings, dto.SightingResponse{
			ID:         sg.ID,
			IdentityID: sg.IdentityID,
			Kind:       string(sg.Kind),
			Distance:   sg.Distance,
			BBox:       sg.BBox,
			TrackID:    sg.TrackID,
			Timestamp:  sg.Timestamp.Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, resp)
}
