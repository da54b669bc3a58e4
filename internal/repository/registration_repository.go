package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

const (
	tableRegistrationRequests = "registration_requests"
	tableRequestedModules     = "requested_modules"
	tableClearances           = "clearances"
	tableSponsoredStudents    = "sponsored_students"
)

var registrationColumns = []string{
	"id", "std_no", "term_id", "semester_number", "semester_status", "sponsor_id",
	"status", "count", "message", "created_at", "updated_at", "date_registered",
}

// RegistrationTable maps registration requests for the audited repository.
var RegistrationTable = Table[models.RegistrationRequest]{
	Name:      tableRegistrationRequests,
	KeyColumn: "id",
	Columns:   registrationColumns,
	Mutable: []string{
		"term_id", "semester_number", "semester_status", "sponsor_id",
		"status", "count", "message", "updated_at", "date_registered",
	},
	Key:   func(r *models.RegistrationRequest) string { return r.ID },
	StdNo: func(r *models.RegistrationRequest) *int64 { return &r.StdNo },
}

// RegistrationRepository persists registration requests.
type RegistrationRepository struct {
	db      *sqlx.DB
	audited *AuditedRepository[models.RegistrationRequest]
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db, audited: NewAuditedRepository(db, RegistrationTable, nil)}
}

// FindByID loads a registration request. Missing rows yield sql.ErrNoRows.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	return r.audited.FindByKey(ctx, id)
}

// FindForUpdate loads and locks a registration request inside the caller's transaction.
func (r *RegistrationRepository) FindForUpdate(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	return r.audited.FindForUpdate(ctx, id)
}

// FindByStudentAndTerm returns the student's request for a term, or nil when none exists.
func (r *RegistrationRepository) FindByStudentAndTerm(ctx context.Context, stdNo int64, termID string) (*models.RegistrationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_requests WHERE std_no = $1 AND term_id = $2`, strings.Join(registrationColumns, ", "))
	var request models.RegistrationRequest
	if err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &request, query, stdNo, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find registration for student: %w", err)
	}
	return &request, nil
}

// Create inserts request. A duplicate (std_no, term_id) surfaces as a unique violation.
func (r *RegistrationRepository) Create(ctx context.Context, request *models.RegistrationRequest, audit *models.AuditContext) error {
	return r.audited.Create(ctx, request, audit)
}

// Update writes the mutable fields of request.
func (r *RegistrationRepository) Update(ctx context.Context, request *models.RegistrationRequest, audit *models.AuditContext) error {
	return r.audited.Update(ctx, request, audit)
}
