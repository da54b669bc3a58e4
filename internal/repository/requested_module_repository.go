package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

const requestedModuleColumns = `id, registration_request_id, semester_module_id, module_status, status, created_at`

// RequestedModuleRepository manages the module set attached to a registration request.
type RequestedModuleRepository struct {
	db         *sqlx.DB
	activities ActivityRegistry
	now        func() time.Time
}

// NewRequestedModuleRepository constructs the repository.
func NewRequestedModuleRepository(db *sqlx.DB) *RequestedModuleRepository {
	return &RequestedModuleRepository{db: db, activities: DefaultActivities, now: func() time.Time { return time.Now().UTC() }}
}

// ListByRequest returns the modules requested on a registration.
func (r *RequestedModuleRepository) ListByRequest(ctx context.Context, requestID string) ([]models.RequestedModule, error) {
	query := fmt.Sprintf(`SELECT %s FROM requested_modules WHERE registration_request_id = $1 ORDER BY created_at, id`, requestedModuleColumns)
	var modules []models.RequestedModule
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &modules, query, requestID); err != nil {
		return nil, fmt.Errorf("list requested modules: %w", err)
	}
	return modules, nil
}

// Replace deletes every module of the request and inserts selections in their place.
// The previous and new sets are logged as one audit entry when audit is supplied.
func (r *RequestedModuleRepository) Replace(ctx context.Context, requestID string, selections []models.ModuleSelection, audit *models.AuditContext) ([]models.RequestedModule, error) {
	var inserted []models.RequestedModule
	err := database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		exec := database.Executor(ctx, r.db)

		var previous []models.RequestedModule
		if audit != nil {
			var err error
			if previous, err = r.ListByRequest(ctx, requestID); err != nil {
				return err
			}
		}

		if _, err := exec.ExecContext(ctx, `DELETE FROM requested_modules WHERE registration_request_id = $1`, requestID); err != nil {
			return fmt.Errorf("delete requested modules: %w", err)
		}
		if len(selections) == 0 {
			return r.log(ctx, exec, requestID, previous, nil, audit)
		}

		now := r.now()
		values := make([]string, 0, len(selections))
		args := make([]interface{}, 0, len(selections)*6)
		inserted = make([]models.RequestedModule, 0, len(selections))
		for i, selection := range selections {
			module := models.RequestedModule{
				ID:                    uuid.NewString(),
				RegistrationRequestID: requestID,
				SemesterModuleID:      selection.SemesterModuleID,
				ModuleStatus:          selection.ModuleStatus,
				Status:                models.RequestedModuleStatusPending,
				CreatedAt:             now,
			}
			base := i * 6
			values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
			args = append(args, module.ID, module.RegistrationRequestID, module.SemesterModuleID, module.ModuleStatus, module.Status, module.CreatedAt)
			inserted = append(inserted, module)
		}

		query := fmt.Sprintf(`INSERT INTO requested_modules (%s) VALUES %s`, requestedModuleColumns, strings.Join(values, ", "))
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert requested modules: %w", err)
		}
		return r.log(ctx, exec, requestID, previous, inserted, audit)
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// SetStatus marks the listed modules of a request with status.
func (r *RequestedModuleRepository) SetStatus(ctx context.Context, requestID string, semesterModuleIDs []string, status models.RequestedModuleStatus) (int64, error) {
	if len(semesterModuleIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE requested_modules SET status = ? WHERE registration_request_id = ? AND semester_module_id IN (?)`, status, requestID, semesterModuleIDs)
	if err != nil {
		return 0, fmt.Errorf("build requested module status query: %w", err)
	}
	query = r.db.Rebind(query)
	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update requested module status: %w", err)
	}
	return result.RowsAffected()
}

func (r *RequestedModuleRepository) log(ctx context.Context, exec sqlx.ExtContext, requestID string, previous, current []models.RequestedModule, audit *models.AuditContext) error {
	if audit == nil {
		return nil
	}
	entry := &models.AuditLog{
		TableName: tableRequestedModules,
		RecordID:  requestID,
		Operation: models.AuditOperationInsert,
		ChangedAt: r.now(),
	}
	if len(previous) > 0 {
		payload, err := json.Marshal(previous)
		if err != nil {
			return fmt.Errorf("marshal previous modules: %w", err)
		}
		entry.OldValues = types.NullJSONText{JSONText: types.JSONText(payload), Valid: true}
	}
	if current != nil {
		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal requested modules: %w", err)
		}
		entry.NewValues = types.NullJSONText{JSONText: types.JSONText(payload), Valid: true}
	}
	applyAuditContext(entry, audit, r.activities)
	return insertAuditLog(ctx, exec, entry)
}
