package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

// UpsertResult reports what a sponsorship upsert did.
type UpsertResult string

const (
	UpsertInserted  UpsertResult = "inserted"
	UpsertUpdated   UpsertResult = "updated"
	UpsertUnchanged UpsertResult = "unchanged"
)

// SponsorshipRepository links students to sponsors and sponsored terms.
type SponsorshipRepository struct {
	db         *sqlx.DB
	activities ActivityRegistry
	now        func() time.Time
}

// NewSponsorshipRepository constructs the repository.
func NewSponsorshipRepository(db *sqlx.DB) *SponsorshipRepository {
	return &SponsorshipRepository{db: db, activities: DefaultActivities, now: func() time.Time { return time.Now().UTC() }}
}

// UpsertStudent inserts or refreshes the (sponsor, student) row. Calling it again
// with identical bank details writes nothing and reports UpsertUnchanged.
func (r *SponsorshipRepository) UpsertStudent(ctx context.Context, student *models.SponsoredStudent, audit *models.AuditContext) (UpsertResult, error) {
	now := r.now()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}

	var result UpsertResult
	err := database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		exec := database.Executor(ctx, r.db)
		query := `INSERT INTO sponsored_students (id, sponsor_id, std_no, borrower_no, bank_name, account_number, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (sponsor_id, std_no) DO UPDATE SET
				borrower_no = EXCLUDED.borrower_no,
				bank_name = EXCLUDED.bank_name,
				account_number = EXCLUDED.account_number,
				updated_at = EXCLUDED.created_at
			WHERE (sponsored_students.borrower_no, sponsored_students.bank_name, sponsored_students.account_number)
				IS DISTINCT FROM (EXCLUDED.borrower_no, EXCLUDED.bank_name, EXCLUDED.account_number)
			RETURNING id, (xmax = 0) AS inserted`

		var row struct {
			ID       string `db:"id"`
			Inserted bool   `db:"inserted"`
		}
		err := sqlx.GetContext(ctx, exec, &row, query,
			student.ID, student.SponsorID, student.StdNo, student.BorrowerNo, student.BankName, student.AccountNumber, now)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			existing, findErr := r.FindStudent(ctx, student.SponsorID, student.StdNo)
			if findErr != nil {
				return findErr
			}
			if existing == nil {
				return fmt.Errorf("sponsored student vanished during upsert")
			}
			*student = *existing
			result = UpsertUnchanged
			return nil
		case err != nil:
			return fmt.Errorf("upsert sponsored student: %w", err)
		}

		student.ID = row.ID
		op := models.AuditOperationUpdate
		result = UpsertUpdated
		if row.Inserted {
			op = models.AuditOperationInsert
			result = UpsertInserted
		} else {
			student.UpdatedAt = &now
		}
		return r.log(ctx, exec, op, student, audit)
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// FindStudent returns the (sponsor, student) row, or nil when absent.
func (r *SponsorshipRepository) FindStudent(ctx context.Context, sponsorID string, stdNo int64) (*models.SponsoredStudent, error) {
	var student models.SponsoredStudent
	err := sqlx.GetContext(ctx, database.Executor(ctx, r.db), &student,
		`SELECT id, sponsor_id, std_no, borrower_no, bank_name, account_number, created_at, updated_at
		FROM sponsored_students WHERE sponsor_id = $1 AND std_no = $2`, sponsorID, stdNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find sponsored student: %w", err)
	}
	return &student, nil
}

// LinkTerm records that a sponsored student is sponsored for a term. Existing links are left untouched.
func (r *SponsorshipRepository) LinkTerm(ctx context.Context, sponsoredStudentID, termID string) (bool, error) {
	result, err := database.Executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sponsored_terms (id, sponsored_student_id, term_id, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (sponsored_student_id, term_id) DO NOTHING`,
		uuid.NewString(), sponsoredStudentID, termID, r.now())
	if err != nil {
		return false, fmt.Errorf("link sponsored term: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check sponsored term rows: %w", err)
	}
	return rows > 0, nil
}

func (r *SponsorshipRepository) log(ctx context.Context, exec sqlx.ExtContext, op models.AuditOperation, student *models.SponsoredStudent, audit *models.AuditContext) error {
	if audit == nil {
		return nil
	}
	payload, err := snapshot(student)
	if err != nil {
		return err
	}
	stdNo := student.StdNo
	entry := &models.AuditLog{
		TableName: tableSponsoredStudents,
		RecordID:  student.ID,
		Operation: op,
		NewValues: payload,
		StdNo:     &stdNo,
		ChangedAt: r.now(),
	}
	applyAuditContext(entry, audit, r.activities)
	return insertAuditLog(ctx, exec, entry)
}
