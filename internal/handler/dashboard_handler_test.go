package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
)

type dashboardServiceMock struct {
	summary  *models.DashboardSummary
	cacheHit bool
	err      error
}

func (m *dashboardServiceMock) Summary(ctx context.Context, yearID string) (*models.DashboardSummary, bool, error) {
	return m.summary, m.cacheHit, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestDashboardHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &dashboardServiceMock{
		summary: &models.DashboardSummary{
			YearID:             "year-1",
			YearName:           "2026-2027",
			FamiliesRegistered: 12,
			GeneratedAt:        time.Now().UTC(),
		},
		cacheHit: true,
	}
	handler := NewDashboardHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/dashboard?yearId=year-1", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "2026-2027")
	require.Contains(t, w.Body.String(), "cache_hit")
}

func TestDashboardHandlerSummaryMissingYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&dashboardServiceMock{})

	c, w := newGinContext(http.MethodGet, "/dashboard", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardHandlerSummaryServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&dashboardServiceMock{err: errors.New("boom")})

	c, w := newGinContext(http.MethodGet, "/dashboard?yearId=year-1", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
