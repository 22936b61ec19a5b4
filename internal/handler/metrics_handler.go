package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/service"
	"github.com/villagefreeschool/adminportal-sub001/pkg/response"
)

// MetricsHandler serves the health probe, the Prometheus scrape
// endpoint and the JSON metrics snapshot.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// available guards the endpoints that need a live metrics service.
func (h *MetricsHandler) available(c *gin.Context) bool {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return false
	}
	return true
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if !h.available(c) {
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health answers liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Snapshot godoc
// @Summary Aggregated system metrics
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/system [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	if !h.available(c) {
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
