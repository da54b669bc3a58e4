package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

func TestSponsorshipUpsertInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSponsorshipRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sponsored_students")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("ss-1", true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.SponsoredStudent{SponsorID: "nmds", StdNo: 901000001}
	result, err := repo.UpsertStudent(context.Background(), student, &models.AuditContext{ActorID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, UpsertInserted, result)
	assert.Equal(t, "ss-1", student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSponsorshipUpsertUnchangedIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSponsorshipRepository(db)
	bank := "Standard Lesotho Bank"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sponsored_students")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sponsored_students WHERE sponsor_id = $1 AND std_no = $2")).
		WithArgs("nmds", int64(901000001)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sponsor_id", "std_no", "borrower_no", "bank_name", "account_number", "created_at", "updated_at"}).
			AddRow("ss-1", "nmds", int64(901000001), nil, bank, nil, time.Now(), nil))
	mock.ExpectCommit()

	student := &models.SponsoredStudent{SponsorID: "nmds", StdNo: 901000001, BankName: &bank}
	result, err := repo.UpsertStudent(context.Background(), student, &models.AuditContext{ActorID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, UpsertUnchanged, result)
	assert.Equal(t, "ss-1", student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSponsorshipLinkTermIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSponsorshipRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (sponsored_student_id, term_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (sponsored_student_id, term_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.LinkTerm(context.Background(), "ss-1", "term-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.LinkTerm(context.Background(), "ss-1", "term-1")
	require.NoError(t, err)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}
