package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/internal/service"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/response"
)

// ContractHandler exposes enrollment contract endpoints.
type ContractHandler struct {
	contracts *service.ContractService
	dashboard *service.DashboardService
}

// NewContractHandler constructs ContractHandler. The dashboard service
// is optional; when present its cached summaries are invalidated on
// contract writes.
func NewContractHandler(contracts *service.ContractService, dashboard *service.DashboardService) *ContractHandler {
	return &ContractHandler{contracts: contracts, dashboard: dashboard}
}

// guardianOwns rejects guardians reaching into another family's
// contract. Staff and admin callers pass through.
func guardianOwns(c *gin.Context, familyID string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleGuardian {
		return true
	}
	return claims.OwnsFamily(familyID)
}

// GetOrCreate godoc
// @Summary Get or create the contract for a family and year
// @Tags Contracts
// @Produce json
// @Param id path string true "Family ID"
// @Param yearId path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /families/{id}/contracts/{yearId} [get]
func (h *ContractHandler) GetOrCreate(c *gin.Context) {
	contract, err := h.contracts.GetOrCreate(c.Request.Context(), c.Param("id"), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// Get godoc
// @Summary Get contract detail
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} response.Envelope
// @Router /contracts/{id} [get]
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !guardianOwns(c, contract.FamilyID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// UpdateDecisions godoc
// @Summary Replace per-student enrollment decisions
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param payload body service.UpdateDecisionsRequest true "Decisions payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /contracts/{id}/decisions [put]
func (h *ContractHandler) UpdateDecisions(c *gin.Context) {
	var req service.UpdateDecisionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !h.authorizeWrite(c) {
		return
	}
	contract, err := h.contracts.UpdateDecisions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateDashboard(c, contract.YearID)
	response.JSON(c, http.StatusOK, contract, nil)
}

// SetTuition godoc
// @Summary Record the family's chosen tuition
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param payload body service.SetTuitionRequest true "Tuition payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /contracts/{id}/tuition [put]
func (h *ContractHandler) SetTuition(c *gin.Context) {
	var req service.SetTuitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !h.authorizeWrite(c) {
		return
	}
	contract, err := h.contracts.SetTuition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateDashboard(c, contract.YearID)
	response.JSON(c, http.StatusOK, contract, nil)
}

// Sign godoc
// @Summary Record a guardian signature
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param payload body service.SignRequest true "Signature payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /contracts/{id}/signatures [post]
func (h *ContractHandler) Sign(c *gin.Context) {
	var req service.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !h.authorizeWrite(c) {
		return
	}
	contract, err := h.contracts.Sign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateDashboard(c, contract.YearID)
	response.JSON(c, http.StatusOK, contract, nil)
}

// Preview godoc
// @Summary Sliding-scale calculation for the contract's current decisions
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} response.Envelope
// @Router /contracts/{id}/preview [get]
func (h *ContractHandler) Preview(c *gin.Context) {
	if !h.authorizeWrite(c) {
		return
	}
	result, err := h.contracts.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Document godoc
// @Summary Printable contract PDF
// @Tags Contracts
// @Produce application/pdf
// @Param id path string true "Contract ID"
// @Success 200 {file} binary
// @Router /contracts/{id}/document [get]
func (h *ContractHandler) Document(c *gin.Context) {
	if !h.authorizeWrite(c) {
		return
	}
	payload, err := h.contracts.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("contract_%s_%s.pdf", c.Param("id"), time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// authorizeWrite loads the contract to scope guardians to their own
// family before any mutation or detailed read.
func (h *ContractHandler) authorizeWrite(c *gin.Context) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleGuardian {
		return true
	}
	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !guardianOwns(c, contract.FamilyID) {
		response.Error(c, appErrors.ErrForbidden)
		return false
	}
	return true
}

func (h *ContractHandler) invalidateDashboard(c *gin.Context, yearID string) {
	if h.dashboard == nil {
		return
	}
	h.dashboard.Invalidate(c.Request.Context(), yearID)
}
