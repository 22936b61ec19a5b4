package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/middleware"
	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, yearID string) (*models.DashboardSummary, bool, error)
}

// DashboardHandler serves the aggregated enrollment view. The service
// is interface-typed so tests can swap in a fake.
type DashboardHandler struct {
	service dashboardService
}

func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// timedMeta stamps the cache outcome on the context and returns the
// response meta block with the elapsed handler time.
func timedMeta(c *gin.Context, start time.Time, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

// Summary godoc
// @Summary Enrollment dashboard for a school year
// @Tags Dashboard
// @Produce json
// @Param yearId query string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	yearID := strings.TrimSpace(c.Query("yearId"))
	if yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "yearId is required"))
		return
	}

	start := time.Now()
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, timedMeta(c, start, cacheHit))
}
