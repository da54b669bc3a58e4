package models

import (
	"strings"
	"time"
)

// StudentStatus is the externally managed lifecycle status of a student.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "Active"
	StudentStatusApplied   StudentStatus = "Applied"
	StudentStatusGraduated StudentStatus = "Graduated"
	StudentStatusSuspended StudentStatus = "Suspended"
	StudentStatusWithdrawn StudentStatus = "Withdrawn"
)

// Student is the identity record resolved by student number.
type Student struct {
	StdNo     int64         `db:"std_no" json:"stdNo"`
	Name      string        `db:"name" json:"name"`
	Status    StudentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// ProgramStatus is the state of one program enrollment.
type ProgramStatus string

const (
	ProgramStatusActive    ProgramStatus = "Active"
	ProgramStatusCompleted ProgramStatus = "Completed"
	ProgramStatusChanged   ProgramStatus = "Changed"
	ProgramStatusInactive  ProgramStatus = "Inactive"
	ProgramStatusDeleted   ProgramStatus = "Deleted"
)

// StudentProgram is a program enrollment of a student.
type StudentProgram struct {
	ID          string        `db:"id" json:"id"`
	StdNo       int64         `db:"std_no" json:"stdNo"`
	StructureID string        `db:"structure_id" json:"structureId"`
	ProgramName string        `db:"program_name" json:"programName"`
	Status      ProgramStatus `db:"status" json:"status"`
}

// StudentSemester is one past semester attempt.
type StudentSemester struct {
	ID               string          `db:"id" json:"id"`
	StudentProgramID string          `db:"student_program_id" json:"studentProgramId"`
	TermCode         string          `db:"term_code" json:"termCode"`
	SemesterNumber   int             `db:"semester_number" json:"semesterNumber"`
	Status           string          `db:"status" json:"status"`
	Modules          []StudentModule `db:"-" json:"modules"`
}

// StudentModule is a module taken in a past semester with its outcome.
type StudentModule struct {
	ID                string `db:"id" json:"id"`
	StudentSemesterID string `db:"student_semester_id" json:"studentSemesterId"`
	SemesterModuleID  string `db:"semester_module_id" json:"semesterModuleId"`
	ModuleID          string `db:"module_id" json:"moduleId"`
	ModuleCode        string `db:"module_code" json:"moduleCode"`
	ModuleName        string `db:"module_name" json:"moduleName"`
	Grade             string `db:"grade" json:"grade"`
	Status            string `db:"status" json:"status"`
}

var failingGrades = map[string]struct{}{
	"F": {}, "X": {}, "GNS": {}, "ANN": {}, "FIN": {}, "FX": {}, "DNC": {}, "DNA": {}, "DNS": {},
}

// Failed reports whether the attempt did not pass.
func (m StudentModule) Failed() bool {
	_, ok := failingGrades[strings.ToUpper(strings.TrimSpace(m.Grade))]
	return ok
}

// Supplementary reports whether the attempt awaits a supplementary exam.
func (m StudentModule) Supplementary() bool {
	return strings.EqualFold(strings.TrimSpace(m.Grade), "PP")
}

// Counted reports whether the attempt participates in academic history.
func (m StudentModule) Counted() bool {
	switch strings.ToLower(m.Status) {
	case "drop", "delete":
		return false
	}
	return true
}

// ModuleType classifies a catalog module.
type ModuleType string

const (
	ModuleTypeCore     ModuleType = "Core"
	ModuleTypeMajor    ModuleType = "Major"
	ModuleTypeMinor    ModuleType = "Minor"
	ModuleTypeElective ModuleType = "Elective"
)

// SemesterModule is a module offered in a structure semester.
type SemesterModule struct {
	ID             string     `db:"id" json:"id"`
	StructureID    string     `db:"structure_id" json:"structureId"`
	ModuleID       string     `db:"module_id" json:"moduleId"`
	Code           string     `db:"code" json:"code"`
	Name           string     `db:"name" json:"name"`
	Type           ModuleType `db:"type" json:"type"`
	Credits        float64    `db:"credits" json:"credits"`
	SemesterNumber int        `db:"semester_number" json:"semesterNumber"`
}
