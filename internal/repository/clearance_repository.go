package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

var clearanceColumns = []string{"id", "department", "status", "message", "responded_by", "response_date", "created_at"}

// ClearanceTable maps clearances for the audited repository.
var ClearanceTable = Table[models.Clearance]{
	Name:      tableClearances,
	KeyColumn: "id",
	Columns:   clearanceColumns,
	Mutable:   []string{"status", "message", "responded_by", "response_date"},
	Key:       func(c *models.Clearance) string { return c.ID },
}

// ClearanceRepository persists department clearances and their links to registration requests.
type ClearanceRepository struct {
	db      *sqlx.DB
	audited *AuditedRepository[models.Clearance]
	now     func() time.Time
}

// NewClearanceRepository constructs the repository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{
		db:      db,
		audited: NewAuditedRepository(db, ClearanceTable, nil),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateForRequest inserts one pending clearance per department and links each
// to the request. Either every clearance and link is written or none is.
func (r *ClearanceRepository) CreateForRequest(ctx context.Context, requestID string, departments []models.Department, audit *models.AuditContext) ([]models.Clearance, error) {
	created := make([]models.Clearance, 0, len(departments))
	err := database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		exec := database.Executor(ctx, r.db)
		now := r.now()
		for _, department := range departments {
			clearance := models.Clearance{
				ID:         uuid.NewString(),
				Department: department,
				Status:     models.ClearanceStatusPending,
				CreatedAt:  now,
			}
			if err := r.audited.Create(ctx, &clearance, audit); err != nil {
				return fmt.Errorf("create %s clearance: %w", department, err)
			}
			if _, err := exec.ExecContext(ctx,
				`INSERT INTO registration_clearances (registration_request_id, clearance_id, created_at) VALUES ($1, $2, $3)`,
				requestID, clearance.ID, now,
			); err != nil {
				return fmt.Errorf("link %s clearance: %w", department, err)
			}
			created = append(created, clearance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindByID loads a clearance. Missing rows yield sql.ErrNoRows.
func (r *ClearanceRepository) FindByID(ctx context.Context, id string) (*models.Clearance, error) {
	return r.audited.FindByKey(ctx, id)
}

// FindForUpdate loads and locks a clearance inside the caller's transaction.
func (r *ClearanceRepository) FindForUpdate(ctx context.Context, id string) (*models.Clearance, error) {
	return r.audited.FindForUpdate(ctx, id)
}

// ListByRequest returns every clearance linked to the request ordered by department.
func (r *ClearanceRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Clearance, error) {
	query := `SELECT c.id, c.department, c.status, c.message, c.responded_by, c.response_date, c.created_at
		FROM clearances c
		JOIN registration_clearances rc ON rc.clearance_id = c.id
		WHERE rc.registration_request_id = $1
		ORDER BY c.department`
	var clearances []models.Clearance
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &clearances, query, requestID); err != nil {
		return nil, fmt.Errorf("list clearances: %w", err)
	}
	return clearances, nil
}

// FindForDepartment returns the department's clearance on a request, or nil when absent.
func (r *ClearanceRepository) FindForDepartment(ctx context.Context, requestID string, department models.Department) (*models.Clearance, error) {
	query := `SELECT c.id, c.department, c.status, c.message, c.responded_by, c.response_date, c.created_at
		FROM clearances c
		JOIN registration_clearances rc ON rc.clearance_id = c.id
		WHERE rc.registration_request_id = $1 AND c.department = $2`
	if _, inTx := database.TxFrom(ctx); inTx {
		query += " FOR UPDATE OF c"
	}
	var clearance models.Clearance
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &clearance, query, requestID, department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s clearance: %w", department, err)
	}
	return &clearance, nil
}

// FindRequestID returns the registration request a clearance belongs to.
func (r *ClearanceRepository) FindRequestID(ctx context.Context, clearanceID string) (string, error) {
	var requestID string
	err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &requestID,
		`SELECT registration_request_id FROM registration_clearances WHERE clearance_id = $1`, clearanceID)
	if err != nil {
		return "", err
	}
	return requestID, nil
}

// Update writes the verdict fields of clearance.
func (r *ClearanceRepository) Update(ctx context.Context, clearance *models.Clearance, audit *models.AuditContext) error {
	return r.audited.Update(ctx, clearance, audit)
}

// InsertAudit appends a clearance status transition.
func (r *ClearanceRepository) InsertAudit(ctx context.Context, entry *models.ClearanceAudit) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Date.IsZero() {
		entry.Date = r.now()
	}
	if entry.Modules == nil {
		entry.Modules = []string{}
	}
	query := `INSERT INTO clearance_audit (id, clearance_id, previous_status, new_status, created_by, date, message, modules)
		VALUES (:id, :clearance_id, :previous_status, :new_status, :created_by, :date, :message, :modules)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, r.db), query, entry); err != nil {
		return fmt.Errorf("insert clearance audit: %w", err)
	}
	return nil
}

// ListAudit returns the transitions of a clearance, oldest first.
func (r *ClearanceRepository) ListAudit(ctx context.Context, clearanceID string) ([]models.ClearanceAudit, error) {
	var entries []models.ClearanceAudit
	err := sqlx.SelectContext(ctx, database.Executor(ctx, r.db), &entries,
		`SELECT id, clearance_id, previous_status, new_status, created_by, date, message, modules
		FROM clearance_audit WHERE clearance_id = $1 ORDER BY date`, clearanceID)
	if err != nil {
		return nil, fmt.Errorf("list clearance audit: %w", err)
	}
	return entries, nil
}

// queueAggregateSQL derives a request's aggregate status from its clearance statuses.
// It must agree with service.AggregateStatus.
const queueAggregateSQL = `CASE
			WHEN status IN ('registered', 'partial') THEN status
			WHEN cardinality(clearance_statuses) = 0 THEN 'pending'
			WHEN 'rejected' = ANY(clearance_statuses) THEN 'rejected'
			WHEN NOT ('approved' = ALL(clearance_statuses)) THEN 'pending'
			ELSE 'approved'
		END`

var queueColumns = append(append([]string{}, registrationColumns...),
	"clearance_id", "department_status", "clearance_statuses", "aggregate_status")

// queueSource builds the CTE shared by the queue listing and its count, plus the
// condition on the aggregate status. Both read from the same rows.
func queueSource(filter models.ClearanceQueueFilter) (string, string, []interface{}) {
	var (
		conditions = []string{"c.department = $1"}
		args       = []interface{}{filter.Department}
	)
	if filter.TermID != "" {
		args = append(args, filter.TermID)
		conditions = append(conditions, fmt.Sprintf("r.term_id = $%d", len(args)))
	}

	cte := fmt.Sprintf(`WITH candidates AS (
		SELECT r.id, r.std_no, r.term_id, r.semester_number, r.semester_status, r.sponsor_id,
			r.status, r.count, r.message, r.created_at, r.updated_at, r.date_registered,
			c.id AS clearance_id, c.status AS department_status,
			ARRAY(
				SELECT c2.status FROM registration_clearances rc2
				JOIN clearances c2 ON c2.id = rc2.clearance_id
				WHERE rc2.registration_request_id = r.id
			) AS clearance_statuses
		FROM registration_requests r
		JOIN registration_clearances rc ON rc.registration_request_id = r.id
		JOIN clearances c ON c.id = rc.clearance_id
		WHERE %s
	), queue AS (
		SELECT candidates.*, %s AS aggregate_status FROM candidates
	)`, strings.Join(conditions, " AND "), queueAggregateSQL)

	where := ""
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = fmt.Sprintf(" WHERE aggregate_status = $%d", len(args))
	}
	return cte, where, args
}

// ListQueue returns one page of the requests carrying a clearance for the filter's
// department, filtered on their aggregate status. A non-positive PageSize returns every row.
func (r *ClearanceRepository) ListQueue(ctx context.Context, filter models.ClearanceQueueFilter) ([]models.ClearanceQueueItem, error) {
	cte, where, args := queueSource(filter)
	query := fmt.Sprintf("%s SELECT %s FROM queue%s ORDER BY created_at, id", cte, strings.Join(queueColumns, ", "), where)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var items []models.ClearanceQueueItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list clearance queue: %w", err)
	}
	return items, nil
}

// CountQueue counts the rows ListQueue would return without paging.
func (r *ClearanceRepository) CountQueue(ctx context.Context, filter models.ClearanceQueueFilter) (int, error) {
	cte, where, args := queueSource(filter)
	var count int
	if err := r.db.GetContext(ctx, &count, fmt.Sprintf("%s SELECT COUNT(*) FROM queue%s", cte, where), args...); err != nil {
		return 0, fmt.Errorf("count clearance queue: %w", err)
	}
	return count, nil
}
