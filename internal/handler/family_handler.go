package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/internal/service"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/response"
)

// FamilyHandler exposes family endpoints.
type FamilyHandler struct {
	families *service.FamilyService
}

// NewFamilyHandler constructs FamilyHandler.
func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

// List godoc
// @Summary List families
// @Tags Families
// @Produce json
// @Param search query string false "Search by family name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /families [get]
func (h *FamilyHandler) List(c *gin.Context) {
	var filter models.FamilyFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	families, pagination, err := h.families.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, families, pagination)
}

// Get godoc
// @Summary Get family detail with guardians and students
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /families/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	family, err := h.families.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// Create godoc
// @Summary Create family
// @Tags Families
// @Accept json
// @Produce json
// @Param payload body service.SaveFamilyRequest true "Family payload"
// @Success 201 {object} response.Envelope
// @Router /families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	var req service.SaveFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	family, err := h.families.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, family)
}

// Update godoc
// @Summary Update family
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family ID"
// @Param payload body service.SaveFamilyRequest true "Family payload"
// @Success 200 {object} response.Envelope
// @Router /families/{id} [put]
func (h *FamilyHandler) Update(c *gin.Context) {
	var req service.SaveFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	family, err := h.families.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// Delete godoc
// @Summary Delete family
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 204 {object} response.Envelope
// @Router /families/{id} [delete]
func (h *FamilyHandler) Delete(c *gin.Context) {
	if err := h.families.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
