package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

func TestClearanceCreateForRequestFansOut(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectBegin()
	for range models.BaseDepartments {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearances")).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_clearances")).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	created, err := repo.CreateForRequest(context.Background(), "req-1", models.BaseDepartments, nil)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, models.DepartmentFinance, created[0].Department)
	assert.Equal(t, models.DepartmentLibrary, created[1].Department)
	assert.Equal(t, models.ClearanceStatusPending, created[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceCreateForRequestIsAllOrNothing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearances")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_clearances")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearances")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	created, err := repo.CreateForRequest(context.Background(), "req-1", models.BaseDepartments, nil)
	require.Error(t, err)
	assert.Nil(t, created)
	assert.Contains(t, err.Error(), "library")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceListQueuePagesInSQL(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	rows := sqlmock.NewRows(queueColumns).
		AddRow("req-1", int64(901000001), "term-1", "02", "Active", nil, "pending", 1, nil, time.Now(), nil, nil, "clr-1", "approved", "{approved,pending}", "pending")

	mock.ExpectQuery(`(?s)WITH candidates AS .* FROM queue WHERE aggregate_status = \$3 ORDER BY created_at, id LIMIT \$4 OFFSET \$5`).
		WithArgs(models.DepartmentFinance, "term-1", models.RegistrationStatusPending, 10, 10).
		WillReturnRows(rows)

	list, err := repo.ListQueue(context.Background(), models.ClearanceQueueFilter{
		Department: models.DepartmentFinance,
		TermID:     "term-1",
		Status:     models.RegistrationStatusPending,
		Page:       2,
		PageSize:   10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ClearanceStatusApproved, list[0].DepartmentStatus)
	assert.Equal(t, []string{"approved", "pending"}, []string(list[0].ClearanceStatuses))
	assert.Equal(t, models.RegistrationStatusPending, list[0].AggregateStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceListQueueWithoutPaging(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectQuery(`FROM queue ORDER BY created_at, id$`).
		WithArgs(models.DepartmentLibrary).
		WillReturnRows(sqlmock.NewRows(queueColumns))

	list, err := repo.ListQueue(context.Background(), models.ClearanceQueueFilter{Department: models.DepartmentLibrary})
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceCountQueueSharesSource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectQuery(`(?s)WITH candidates AS .*'rejected' = ANY\(clearance_statuses\).* SELECT COUNT\(\*\) FROM queue WHERE aggregate_status = \$2`).
		WithArgs(models.DepartmentAcademic, models.RegistrationStatusRejected).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountQueue(context.Background(), models.ClearanceQueueFilter{
		Department: models.DepartmentAcademic,
		Status:     models.RegistrationStatusRejected,
		Page:       3,
		PageSize:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceFindForDepartmentMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rc.registration_request_id = $1 AND c.department = $2")).
		WithArgs("req-1", models.DepartmentFinance).
		WillReturnRows(sqlmock.NewRows(clearanceColumns))

	clearance, err := repo.FindForDepartment(context.Background(), "req-1", models.DepartmentFinance)
	require.NoError(t, err)
	assert.Nil(t, clearance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceInsertAuditDefaultsModules(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClearanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearance_audit")).WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ClearanceAudit{ClearanceID: "clr-1", NewStatus: models.ClearanceStatusPending, CreatedBy: "student-1"}
	require.NoError(t, repo.InsertAudit(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NotNil(t, entry.Modules)
	assert.False(t, entry.Date.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
