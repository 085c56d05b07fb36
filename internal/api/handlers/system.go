package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SYNOVA-LABS/ADA/internal/storage"
)

// HealthCheck probes one dependency. Readyz runs every registered check
// and reports per-dependency status.
type HealthCheck func(ctx context.Context) error

type SystemHandler struct {
	store  storage.Store
	extras map[string]HealthCheck
}

// NewSystemHandler wires readiness checks. extras holds optional
// dependencies (nats, minio) keyed by the name reported in the readyz
// body; pass nil when there are none.
func NewSystemHandler(store storage.Store, extras map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{store: store, extras: extras}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	} else {
		checks["store"] = "ok"
	}

	for name, check := range h.extras {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
