package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

type clearanceService interface {
	Respond(ctx context.Context, clearanceID string, req dto.RespondClearanceRequest, actor *models.JWTClaims) (*models.Clearance, error)
	History(ctx context.Context, clearanceID string) ([]models.ClearanceAudit, error)
	Queue(ctx context.Context, filter models.ClearanceQueueFilter) ([]models.ClearanceQueueItem, *models.Pagination, error)
	Count(ctx context.Context, filter models.ClearanceQueueFilter) (int, error)
}

// ClearanceHandler exposes department clearance endpoints.
type ClearanceHandler struct {
	service clearanceService
}

// NewClearanceHandler constructs ClearanceHandler.
func NewClearanceHandler(service clearanceService) *ClearanceHandler {
	return &ClearanceHandler{service: service}
}

// Respond godoc
// @Summary Record a department verdict
// @Tags Clearances
// @Accept json
// @Produce json
// @Param id path string true "Clearance ID"
// @Param payload body dto.RespondClearanceRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /clearances/{id} [put]
func (h *ClearanceHandler) Respond(c *gin.Context) {
	var req dto.RespondClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid clearance response"))
		return
	}
	clearance, err := h.service.Respond(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, clearance)
}

// History godoc
// @Summary List status transitions of a clearance
// @Tags Clearances
// @Produce json
// @Param id path string true "Clearance ID"
// @Success 200 {object} response.Envelope
// @Router /clearances/{id}/history [get]
func (h *ClearanceHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Queue godoc
// @Summary List a department's clearance queue
// @Tags Clearances
// @Produce json
// @Param department query string false "Department, defaults to the caller's"
// @Param termId query string false "Term ID"
// @Param status query string false "Aggregate status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clearances/queue [get]
func (h *ClearanceHandler) Queue(c *gin.Context) {
	filter, err := h.queueFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.Queue(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, items, pagination)
}

// Count godoc
// @Summary Count a department's clearance queue
// @Tags Clearances
// @Produce json
// @Param department query string false "Department, defaults to the caller's"
// @Param termId query string false "Term ID"
// @Param status query string false "Aggregate status"
// @Success 200 {object} response.Envelope
// @Router /clearances/queue/count [get]
func (h *ClearanceHandler) Count(c *gin.Context) {
	filter, err := h.queueFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.service.Count(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ClearanceQueueCount{Department: string(filter.Department), Count: count})
}

// queueFilter pins department roles to their own queue.
func (h *ClearanceHandler) queueFilter(c *gin.Context) (models.ClearanceQueueFilter, error) {
	var query dto.ClearanceQueueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return models.ClearanceQueueFilter{}, bindError(err, "invalid queue query")
	}
	department := models.Department(query.Department)
	if claims := claimsFromContext(c); claims != nil {
		if own, ok := claims.Role.Department(); ok {
			if department != "" && department != own {
				return models.ClearanceQueueFilter{}, appErrors.Clone(appErrors.ErrForbidden, "queue belongs to another department")
			}
			department = own
		}
	}
	status := models.RegistrationStatus(query.Status)
	switch status {
	case "", models.RegistrationStatusPending, models.RegistrationStatusApproved, models.RegistrationStatusRejected,
		models.RegistrationStatusPartial, models.RegistrationStatusRegistered:
	default:
		return models.ClearanceQueueFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	return models.ClearanceQueueFilter{
		Department: department,
		TermID:     query.TermID,
		Status:     status,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}, nil
}
