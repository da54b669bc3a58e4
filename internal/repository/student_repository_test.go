package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentFindByStdNoMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE std_no = $1")).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStdNo(context.Background(), 42)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentListSemestersAttachesModules(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_semesters WHERE student_program_id = $1")).
		WithArgs("sp-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_program_id", "term_code", "semester_number", "status"}).
			AddRow("ss-1", "sp-1", "2024-02", 1, "Active").
			AddRow("ss-2", "sp-1", "2025-02", 2, "Active"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_modules sm")).
		WithArgs("ss-1", "ss-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_semester_id", "semester_module_id", "module_id", "module_code", "module_name", "grade", "status"}).
			AddRow("m-1", "ss-1", "sm-1", "mod-1", "DIT110", "Programming", "B", "Compulsory").
			AddRow("m-2", "ss-2", "sm-4", "mod-4", "DIT210", "Databases", "F", "Compulsory").
			AddRow("m-3", "ss-2", "sm-5", "mod-5", "DIT220", "Networks", "A", "Compulsory"))

	semesters, err := repo.ListSemesters(context.Background(), "sp-1")
	require.NoError(t, err)
	require.Len(t, semesters, 2)
	assert.Len(t, semesters[0].Modules, 1)
	assert.Len(t, semesters[1].Modules, 2)
	assert.True(t, semesters[1].Modules[0].Failed())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterModuleFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSemesterModuleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM semester_modules WHERE id IN")).
		WithArgs("sm-1", "sm-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "structure_id", "module_id", "code", "name", "type", "credits", "semester_number"}).
			AddRow("sm-1", "st-1", "mod-1", "DIT110", "Programming", "Core", 12.0, 1))

	found, err := repo.FindByIDs(context.Background(), []string{"sm-1", "sm-x"})
	require.NoError(t, err)
	assert.Contains(t, found, "sm-1")
	assert.NotContains(t, found, "sm-x")
	require.NoError(t, mock.ExpectationsWereMet())
}
