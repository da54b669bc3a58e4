package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

// Table describes how entity type T maps onto one table.
type Table[T any] struct {
	Name      string
	KeyColumn string
	// Columns lists every persisted column, key included, in insert order.
	Columns []string
	// Mutable lists the columns written by Update.
	Mutable []string
	Key     func(*T) string
	// StdNo optionally resolves the subject student of a row for audit entries.
	StdNo func(*T) *int64
}

func (t Table[T]) insertQuery() string {
	named := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		named[i] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(t.Columns, ", "), strings.Join(named, ", "))
}

func (t Table[T]) updateQuery() string {
	sets := make([]string, len(t.Mutable))
	for i, col := range t.Mutable {
		sets[i] = fmt.Sprintf("%s = :%s", col, col)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s", t.Name, strings.Join(sets, ", "), t.KeyColumn, t.KeyColumn)
}

func (t Table[T]) selectQuery(lock bool) string {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", strings.Join(t.Columns, ", "), t.Name, t.KeyColumn)
	if lock {
		query += " FOR UPDATE"
	}
	return query
}

// ActivityRegistry maps (table, operation) pairs onto activity tags.
type ActivityRegistry map[string]map[models.AuditOperation]string

// Resolve returns the activity tag for the pair, or nil when unregistered.
func (r ActivityRegistry) Resolve(table string, op models.AuditOperation) *string {
	ops, ok := r[table]
	if !ok {
		return nil
	}
	activity, ok := ops[op]
	if !ok || activity == "" {
		return nil
	}
	return &activity
}

// DefaultActivities tags the mutations performed by the registration workflow.
var DefaultActivities = ActivityRegistry{
	tableRegistrationRequests: {
		models.AuditOperationInsert: "registration_submitted",
		models.AuditOperationUpdate: "registration_updated",
		models.AuditOperationDelete: "registration_deleted",
	},
	tableClearances: {
		models.AuditOperationInsert: "clearance_requested",
		models.AuditOperationUpdate: "clearance_responded",
	},
	tableSponsoredStudents: {
		models.AuditOperationInsert: "sponsorship_updated",
		models.AuditOperationUpdate: "sponsorship_updated",
	},
	tableRequestedModules: {
		models.AuditOperationInsert: "modules_requested",
	},
}

// AuditedRepository performs create/update/delete on T and, when an audit
// context is supplied, writes the matching audit_logs row in the same transaction.
type AuditedRepository[T any] struct {
	db         *sqlx.DB
	table      Table[T]
	activities ActivityRegistry
	now        func() time.Time
}

// NewAuditedRepository binds the generic repository to one table.
func NewAuditedRepository[T any](db *sqlx.DB, table Table[T], activities ActivityRegistry) *AuditedRepository[T] {
	if activities == nil {
		activities = DefaultActivities
	}
	return &AuditedRepository[T]{db: db, table: table, activities: activities, now: func() time.Time { return time.Now().UTC() }}
}

// FindByKey loads one row by primary key.
func (r *AuditedRepository[T]) FindByKey(ctx context.Context, key string) (*T, error) {
	return r.find(ctx, key, false)
}

// FindForUpdate loads one row by primary key, locking it when ctx carries a transaction.
func (r *AuditedRepository[T]) FindForUpdate(ctx context.Context, key string) (*T, error) {
	_, inTx := database.TxFrom(ctx)
	return r.find(ctx, key, inTx)
}

// Create inserts entity.
func (r *AuditedRepository[T]) Create(ctx context.Context, entity *T, audit *models.AuditContext) error {
	if audit == nil {
		return r.insert(ctx, entity)
	}
	return database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		if err := r.insert(ctx, entity); err != nil {
			return err
		}
		return r.record(ctx, models.AuditOperationInsert, r.table.Key(entity), nil, entity, audit)
	})
}

// Update writes the mutable columns of entity. Missing rows yield sql.ErrNoRows.
func (r *AuditedRepository[T]) Update(ctx context.Context, entity *T, audit *models.AuditContext) error {
	if audit == nil {
		return r.update(ctx, entity)
	}
	key := r.table.Key(entity)
	return database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		old, err := r.find(ctx, key, true)
		if err != nil {
			return err
		}
		if err := r.update(ctx, entity); err != nil {
			return err
		}
		return r.record(ctx, models.AuditOperationUpdate, key, old, entity, audit)
	})
}

// Delete removes the row identified by key. Missing rows yield sql.ErrNoRows.
func (r *AuditedRepository[T]) Delete(ctx context.Context, key string, audit *models.AuditContext) error {
	if audit == nil {
		return r.delete(ctx, key)
	}
	return database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		old, err := r.find(ctx, key, true)
		if err != nil {
			return err
		}
		if err := r.delete(ctx, key); err != nil {
			return err
		}
		return r.record(ctx, models.AuditOperationDelete, key, old, nil, audit)
	})
}

func (r *AuditedRepository[T]) find(ctx context.Context, key string, lock bool) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &entity, r.table.selectQuery(lock), key); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *AuditedRepository[T]) insert(ctx context.Context, entity *T) error {
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), r.table.insertQuery(), entity); err != nil {
		return fmt.Errorf("insert %s: %w", r.table.Name, err)
	}
	return nil
}

func (r *AuditedRepository[T]) update(ctx context.Context, entity *T) error {
	result, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), r.table.updateQuery(), entity)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table.Name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s update rows: %w", r.table.Name, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AuditedRepository[T]) delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table.Name, r.table.KeyColumn)
	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s delete rows: %w", r.table.Name, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AuditedRepository[T]) record(ctx context.Context, op models.AuditOperation, key string, old, updated *T, audit *models.AuditContext) error {
	entry := &models.AuditLog{
		TableName: r.table.Name,
		RecordID:  key,
		Operation: op,
		ChangedAt: r.now(),
	}
	var err error
	if entry.OldValues, err = snapshot(old); err != nil {
		return err
	}
	if entry.NewValues, err = snapshot(updated); err != nil {
		return err
	}
	if r.table.StdNo != nil {
		if updated != nil {
			entry.StdNo = r.table.StdNo(updated)
		} else if old != nil {
			entry.StdNo = r.table.StdNo(old)
		}
	}
	applyAuditContext(entry, audit, r.activities)
	return insertAuditLog(ctx, database.Executor(ctx, r.db), entry)
}

func applyAuditContext(entry *models.AuditLog, audit *models.AuditContext, activities ActivityRegistry) {
	if audit.ActorID != "" {
		actor := audit.ActorID
		entry.ChangedBy = &actor
	}
	if audit.Role != "" {
		role := string(audit.Role)
		entry.ChangedByRole = &role
	}
	if audit.StdNo != nil {
		entry.StdNo = audit.StdNo
	}
	entry.ActivityType = audit.ActivityType
	if entry.ActivityType == nil {
		entry.ActivityType = activities.Resolve(entry.TableName, entry.Operation)
	}
}

func snapshot[T any](value *T) (types.NullJSONText, error) {
	if value == nil {
		return types.NullJSONText{}, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return types.NullJSONText{}, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return types.NullJSONText{JSONText: types.JSONText(payload), Valid: true}, nil
}
