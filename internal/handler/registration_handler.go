package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

type registrationService interface {
	Create(ctx context.Context, req dto.CreateRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error)
	GetForStudent(ctx context.Context, stdNo int64, termID string, actor *models.JWTClaims) (*models.RegistrationDetail, error)
	Complete(ctx context.Context, id string, req dto.CompleteRegistrationRequest, actor *models.JWTClaims) (*models.RegistrationDetail, error)
}

// RegistrationHandler exposes registration request endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Create godoc
// @Summary Submit a registration request
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req dto.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Update a pending registration request
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.UpdateRegistrationRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id} [put]
func (h *RegistrationHandler) Update(c *gin.Context) {
	var req dto.UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Get godoc
// @Summary Get a registration request with modules and clearances
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// GetForStudent godoc
// @Summary Get a student's registration request for a term
// @Tags Registrations
// @Produce json
// @Param stdNo path int true "Student number"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /students/{stdNo}/registration [get]
func (h *RegistrationHandler) GetForStudent(c *gin.Context) {
	stdNo, err := stdNoParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	termID := strings.TrimSpace(c.Query("termId"))
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	detail, err := h.service.GetForStudent(c.Request.Context(), stdNo, termID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Complete godoc
// @Summary Complete enrollment for a cleared registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.CompleteRegistrationRequest false "Modules to register"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/complete [post]
func (h *RegistrationHandler) Complete(c *gin.Context) {
	var req dto.CompleteRegistrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid completion payload"))
			return
		}
	}
	detail, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}
