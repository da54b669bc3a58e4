package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error)
}

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary List audit entries of a record
// @Tags Audit
// @Produce json
// @Param table query string true "Table name"
// @Param recordId query string true "Record ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		TableName: c.Query("table"),
		RecordID:  c.Query("recordId"),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
