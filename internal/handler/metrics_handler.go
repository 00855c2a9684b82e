package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/peoplehub/people-api/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      *sqlx.DB
	cache   *redis.Client
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, db *sqlx.DB, cache *redis.Client) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready verifies the backing stores before reporting ready.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.notReady(c, "database", err)
			return
		}
	}
	if h.cache != nil {
		if err := h.pingCache(ctx); err != nil {
			h.notReady(c, "redis", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *MetricsHandler) pingCache(ctx context.Context) error {
	return h.cache.Ping(ctx).Err()
}

func (h *MetricsHandler) notReady(c *gin.Context, dependency string, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":     "unavailable",
		"dependency": dependency,
		"error":      err.Error(),
	})
}
