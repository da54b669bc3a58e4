package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ntholi/registry-web-sub009/internal/models"
)

// StudentRepository reads student identity and academic history.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByStdNo fetches a student. Missing students yield sql.ErrNoRows.
func (r *StudentRepository) FindByStdNo(ctx context.Context, stdNo int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT std_no, name, status, created_at FROM students WHERE std_no = $1`, stdNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListPrograms returns every program enrollment of the student.
func (r *StudentRepository) ListPrograms(ctx context.Context, stdNo int64) ([]models.StudentProgram, error) {
	query := `SELECT sp.id, sp.std_no, sp.structure_id, p.name AS program_name, sp.status
		FROM student_programs sp
		JOIN structures s ON s.id = sp.structure_id
		JOIN programs p ON p.id = s.program_id
		WHERE sp.std_no = $1
		ORDER BY sp.id`
	var programs []models.StudentProgram
	if err := r.db.SelectContext(ctx, &programs, query, stdNo); err != nil {
		return nil, fmt.Errorf("list student programs: %w", err)
	}
	return programs, nil
}

// ListSemesters returns the semesters of a program with their modules attached, in attempt order.
func (r *StudentRepository) ListSemesters(ctx context.Context, studentProgramID string) ([]models.StudentSemester, error) {
	var semesters []models.StudentSemester
	err := r.db.SelectContext(ctx, &semesters,
		`SELECT id, student_program_id, term_code, semester_number, status
		FROM student_semesters WHERE student_program_id = $1
		ORDER BY term_code, id`, studentProgramID)
	if err != nil {
		return nil, fmt.Errorf("list student semesters: %w", err)
	}
	if len(semesters) == 0 {
		return semesters, nil
	}

	ids := make([]string, len(semesters))
	index := make(map[string]int, len(semesters))
	for i, semester := range semesters {
		ids[i] = semester.ID
		index[semester.ID] = i
	}

	query, args, err := sqlx.In(`SELECT sm.id, sm.student_semester_id, sm.semester_module_id, m.module_id,
			m.code AS module_code, m.name AS module_name, sm.grade, sm.status
		FROM student_modules sm
		JOIN semester_modules m ON m.id = sm.semester_module_id
		WHERE sm.student_semester_id IN (?)
		ORDER BY sm.student_semester_id, m.code`, ids)
	if err != nil {
		return nil, fmt.Errorf("build student module query: %w", err)
	}
	var modules []models.StudentModule
	if err := r.db.SelectContext(ctx, &modules, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list student modules: %w", err)
	}
	for _, module := range modules {
		if i, ok := index[module.StudentSemesterID]; ok {
			semesters[i].Modules = append(semesters[i].Modules, module)
		}
	}
	return semesters, nil
}
