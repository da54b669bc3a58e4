package models

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is the lifecycle status stored on a registration request.
type RegistrationStatus string

const (
	RegistrationStatusPending    RegistrationStatus = "pending"
	RegistrationStatusApproved   RegistrationStatus = "approved"
	RegistrationStatusRejected   RegistrationStatus = "rejected"
	RegistrationStatusPartial    RegistrationStatus = "partial"
	RegistrationStatusRegistered RegistrationStatus = "registered"
)

// Enrolled reports whether enrollment completion has already happened.
func (s RegistrationStatus) Enrolled() bool {
	return s == RegistrationStatusRegistered || s == RegistrationStatusPartial
}

// SemesterStatus says whether a request progresses or repeats a semester.
type SemesterStatus string

const (
	SemesterStatusActive SemesterStatus = "Active"
	SemesterStatusRepeat SemesterStatus = "Repeat"
)

// Valid reports whether s is one of the known semester statuses.
func (s SemesterStatus) Valid() bool {
	return s == SemesterStatusActive || s == SemesterStatusRepeat
}

// RegistrationRequest is a student's module registration for one term.
type RegistrationRequest struct {
	ID             string             `db:"id" json:"id"`
	StdNo          int64              `db:"std_no" json:"stdNo"`
	TermID         string             `db:"term_id" json:"termId"`
	SemesterNumber string             `db:"semester_number" json:"semesterNumber"`
	SemesterStatus SemesterStatus     `db:"semester_status" json:"semesterStatus"`
	SponsorID      *string            `db:"sponsor_id" json:"sponsorId,omitempty"`
	Status         RegistrationStatus `db:"status" json:"status"`
	Count          int                `db:"count" json:"count"`
	Message        *string            `db:"message" json:"message,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      *time.Time         `db:"updated_at" json:"updatedAt,omitempty"`
	DateRegistered *time.Time         `db:"date_registered" json:"dateRegistered,omitempty"`
}

// ModuleStatus is the enrollment classification of a requested module.
type ModuleStatus string

const (
	ModuleStatusCompulsory ModuleStatus = "Compulsory"
	ModuleStatusElective   ModuleStatus = "Elective"
	ModuleStatusAdd        ModuleStatus = "Add"
	ModuleStatusDrop       ModuleStatus = "Drop"
	ModuleStatusExempted   ModuleStatus = "Exempted"
)

// MaxRepeatTier is the highest RepeatN status supported.
const MaxRepeatTier = 7

// RepeatStatus returns RepeatN; tiers outside 1..MaxRepeatTier collapse to Repeat1.
func RepeatStatus(n int) ModuleStatus {
	if n < 1 || n > MaxRepeatTier {
		n = 1
	}
	return ModuleStatus(fmt.Sprintf("Repeat%d", n))
}

// IsRepeat reports whether m is one of the RepeatN statuses.
func (m ModuleStatus) IsRepeat() bool {
	if !strings.HasPrefix(string(m), "Repeat") {
		return false
	}
	for n := 1; n <= MaxRepeatTier; n++ {
		if m == RepeatStatus(n) {
			return true
		}
	}
	return false
}

// Valid reports whether m is a known module status.
func (m ModuleStatus) Valid() bool {
	switch m {
	case ModuleStatusCompulsory, ModuleStatusElective, ModuleStatusAdd, ModuleStatusDrop, ModuleStatusExempted:
		return true
	}
	return m.IsRepeat()
}

// RequestedModuleStatus tracks approval of a single requested module.
type RequestedModuleStatus string

const (
	RequestedModuleStatusPending    RequestedModuleStatus = "pending"
	RequestedModuleStatusRegistered RequestedModuleStatus = "registered"
	RequestedModuleStatusRejected   RequestedModuleStatus = "rejected"
)

// RequestedModule is one module selected on a registration request.
type RequestedModule struct {
	ID                    string                `db:"id" json:"id"`
	RegistrationRequestID string                `db:"registration_request_id" json:"registrationRequestId"`
	SemesterModuleID      string                `db:"semester_module_id" json:"semesterModuleId"`
	ModuleStatus          ModuleStatus          `db:"module_status" json:"moduleStatus"`
	Status                RequestedModuleStatus `db:"status" json:"status"`
	CreatedAt             time.Time             `db:"created_at" json:"createdAt"`
}

// ModuleSelection is a (semester module, status) pair chosen by a student.
type ModuleSelection struct {
	SemesterModuleID string       `json:"semesterModuleId" validate:"required"`
	ModuleStatus     ModuleStatus `json:"moduleStatus" validate:"required"`
}

// RegistrationDetail is the read model for a single registration request.
type RegistrationDetail struct {
	RegistrationRequest
	AggregateStatus RegistrationStatus `json:"aggregateStatus"`
	Modules         []RequestedModule  `json:"modules"`
	Clearances      []Clearance        `json:"clearances"`
}
