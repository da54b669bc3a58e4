package service

import (
	"context"
	"strings"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

type auditLogReader interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error)
}

var auditedTables = map[string]struct{}{
	"registration_requests": {},
	"requested_modules":     {},
	"clearances":            {},
	"sponsored_students":    {},
}

// AuditService exposes the audit ledger of a record.
type AuditService struct {
	repo auditLogReader
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditLogReader) *AuditService {
	return &AuditService{repo: repo}
}

// List returns the audit entries of one record, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error) {
	filter.TableName = strings.TrimSpace(filter.TableName)
	filter.RecordID = strings.TrimSpace(filter.RecordID)
	if filter.TableName == "" || filter.RecordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "table and recordId are required")
	}
	if _, ok := auditedTables[filter.TableName]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "table is not audited")
	}
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load audit logs")
	}
	return logs, nil
}
