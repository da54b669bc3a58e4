package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

const auditLogColumns = `id, table_name, record_id, operation, old_values, new_values, changed_by, changed_by_role, activity_type, std_no, changed_at`

// AuditLogRepository reads the generic audit ledger.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository constructs the repository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// List returns the ledger of one record, newest first.
func (r *AuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE table_name = $1 AND record_id = $2 ORDER BY changed_at DESC LIMIT %d`, auditLogColumns, limit)
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, filter.TableName, filter.RecordID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func insertAuditLog(ctx context.Context, ext sqlx.ExtContext, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO audit_logs (%s) VALUES (:id, :table_name, :record_id, :operation, :old_values, :new_values, :changed_by, :changed_by_role, :activity_type, :std_no, :changed_at)`, auditLogColumns)
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
