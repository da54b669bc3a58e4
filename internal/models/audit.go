package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditOperation is the mutation recorded by an audit entry.
type AuditOperation string

const (
	AuditOperationInsert AuditOperation = "INSERT"
	AuditOperationUpdate AuditOperation = "UPDATE"
	AuditOperationDelete AuditOperation = "DELETE"
)

// AuditLog is an append-only record of a mutation through the audited repository.
type AuditLog struct {
	ID            string             `db:"id" json:"id"`
	TableName     string             `db:"table_name" json:"tableName"`
	RecordID      string             `db:"record_id" json:"recordId"`
	Operation     AuditOperation     `db:"operation" json:"operation"`
	OldValues     types.NullJSONText `db:"old_values" json:"oldValues"`
	NewValues     types.NullJSONText `db:"new_values" json:"newValues"`
	ChangedBy     *string            `db:"changed_by" json:"changedBy,omitempty"`
	ChangedByRole *string            `db:"changed_by_role" json:"changedByRole,omitempty"`
	ActivityType  *string            `db:"activity_type" json:"activityType,omitempty"`
	StdNo         *int64             `db:"std_no" json:"stdNo,omitempty"`
	ChangedAt     time.Time          `db:"changed_at" json:"changedAt"`
}

// AuditContext identifies who performs a mutation. A nil *AuditContext disables logging.
type AuditContext struct {
	ActorID      string
	Role         UserRole
	ActivityType *string
	StdNo        *int64
}

// AuditLogFilter selects the ledger of one record.
type AuditLogFilter struct {
	TableName string
	RecordID  string
	Limit     int
}
