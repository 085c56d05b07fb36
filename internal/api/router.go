package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SYNOVA-LABS/ADA/internal/api/handlers"
	"github.com/SYNOVA-LABS/ADA/internal/api/ws"
	"github.com/SYNOVA-LABS/ADA/internal/auth"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
)

// RouterConfig wires the read-only HTTP surface. The engine mutates
// identities only through the recognition loop; the API observes.
type RouterConfig struct {
	APIKey string
	Store  storage.Store
	Images storage.ImageStore
	Hub    *ws.Hub
	// Checks holds optional readiness probes (nats, minio) beyond the
	// identity store, keyed by the name reported in the readyz body.
	Checks map[string]handlers.HealthCheck
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Store, cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket live feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Identities
	identH := handlers.NewIdentityHandler(cfg.Store, cfg.Images)
	v1.GET("/identities", identH.List)
	v1.GET("/identities/:id", identH.Get)
	v1.GET("/identities/:id/image", identH.Image)

	// Sightings
	sightH := handlers.NewSightingHandler(cfg.Store)
	v1.GET("/sightings", sightH.List)

	return r
}
