package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
	"github.com/SYNOVA-LABS/ADA/pkg/dto"
)

const (
	defaultIdentityPageSize = 50
	maxIdentityPageSize     = 200
)

type IdentityHandler struct {
	store  storage.Store
	images storage.ImageStore
}

func NewIdentityHandler(store storage.Store, images storage.ImageStore) *IdentityHandler {
	return &IdentityHandler{store: store, images: images}
}

func (h *IdentityHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultIdentityPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > maxIdentityPageSize {
		limit = defaultIdentityPageSize
	}
	if offset < 0 {
		offset = 0
	}

	identities, total, err := h.store.ListIdentities(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.IdentityListResponse{
		Identities: make([]dto.IdentityResponse, 0, len(identities)),
		Total:      total,
	}
	for _, ident := range identities {
		resp.Identities = append(resp.Identities, identityResponse(ident))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ident, err := h.store.GetIdentity(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, identityResponse(*ident))
}

// Image serves the face crop captured at enrollment.
func (h *IdentityHandler) Image(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ident, err := h.store.GetIdentity(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident.ImageKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity has no image"})
		return
	}

	data, err := h.images.Load(c.Request.Context(), ident.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

func identityResponse(ident models.Identity) dto.IdentityResponse {
	resp := dto.IdentityResponse{
		ID:          ident.ID,
		Name:        ident.Label.Name,
		Placeholder: ident.Label.Placeholder,
		Access:      string(ident.Access),
		CreatedAt:   ident.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if ident.ImageKey != "" {
		resp.ImageURL = "/v1/identities/" + ident.ID.String() + "/image"
	}
	return resp
}
