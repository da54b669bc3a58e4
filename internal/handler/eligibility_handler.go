package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/internal/service"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

type eligibilityService interface {
	EligibleModules(ctx context.Context, stdNo int64, override bool) (*service.Eligibility, error)
	DetermineSemesterStatus(ctx context.Context, stdNo int64, selections []models.ModuleSelection) (*service.SemesterStatusResult, error)
}

// EligibilityHandler exposes the eligibility resolver.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs EligibilityHandler.
func NewEligibilityHandler(service eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

// EligibleModules godoc
// @Summary List modules a student may register for
// @Tags Eligibility
// @Produce json
// @Param stdNo path int true "Student number"
// @Param override query bool false "Let a remain standing progress (registry only)"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{stdNo}/eligible-modules [get]
func (h *EligibilityHandler) EligibleModules(c *gin.Context) {
	stdNo, err := stdNoParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	override := false
	if raw := c.Query("override"); raw != "" {
		if override, err = strconv.ParseBool(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "override must be a boolean"))
			return
		}
	}
	if override && !canOverride(claimsFromContext(c)) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only registry staff may override eligibility"))
		return
	}

	result, err := h.service.EligibleModules(c.Request.Context(), stdNo, override)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// SemesterStatus godoc
// @Summary Derive semester number and status for a module selection
// @Tags Eligibility
// @Accept json
// @Produce json
// @Param stdNo path int true "Student number"
// @Param payload body dto.SemesterStatusRequest true "Selected modules"
// @Success 200 {object} response.Envelope
// @Router /students/{stdNo}/semester-status [post]
func (h *EligibilityHandler) SemesterStatus(c *gin.Context) {
	stdNo, err := stdNoParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SemesterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid module selection"))
		return
	}
	if len(req.Modules) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one module is required"))
		return
	}
	result, err := h.service.DetermineSemesterStatus(c.Request.Context(), stdNo, dto.Selections(req.Modules))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func canOverride(claims *models.JWTClaims) bool {
	return claims != nil && (claims.Role == models.RoleRegistry || claims.Role == models.RoleAdmin)
}
