package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/database"
)

func TestRegistrationCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "registration_requests_std_no_term_id_key"})

	err := repo.Create(context.Background(), sampleRequest(), nil)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationFindByStudentAndTermMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_requests WHERE std_no = $1 AND term_id = $2")).
		WithArgs(int64(901000001), "term-1").
		WillReturnRows(sqlmock.NewRows(registrationColumns))

	found, err := repo.FindByStudentAndTerm(context.Background(), 901000001, "term-1")
	require.NoError(t, err)
	assert.Nil(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationFindByStudentAndTermFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	request := sampleRequest()
	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_requests WHERE std_no = $1 AND term_id = $2")).
		WithArgs(request.StdNo, request.TermID).
		WillReturnRows(registrationRow(request))

	found, err := repo.FindByStudentAndTerm(context.Background(), request.StdNo, request.TermID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "03", found.SemesterNumber)
	assert.Equal(t, models.RegistrationStatusPending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestedModulesReplaceDeletesThenInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestedModuleRepository(db)
	selections := []models.ModuleSelection{
		{SemesterModuleID: "sm-1", ModuleStatus: models.ModuleStatusCompulsory},
		{SemesterModuleID: "sm-2", ModuleStatus: models.RepeatStatus(1)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requested_modules WHERE registration_request_id = $1")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requested_modules")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	modules, err := repo.Replace(context.Background(), "req-1", selections, nil)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, models.ModuleStatus("Repeat1"), modules[1].ModuleStatus)
	assert.Equal(t, models.RequestedModuleStatusPending, modules[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestedModulesReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestedModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requested_modules")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requested_modules")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Replace(context.Background(), "req-1", []models.ModuleSelection{{SemesterModuleID: "sm-1", ModuleStatus: models.ModuleStatusElective}}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestedModulesReplaceLogsSetChange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestedModuleRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM requested_modules WHERE registration_request_id = $1")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_request_id", "semester_module_id", "module_status", "status", "created_at"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requested_modules")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requested_modules")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := repo.Replace(context.Background(), "req-1",
		[]models.ModuleSelection{{SemesterModuleID: "sm-1", ModuleStatus: models.ModuleStatusCompulsory}},
		&models.AuditContext{ActorID: "student-1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
