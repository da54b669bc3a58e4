package models

import (
	"time"

	"github.com/lib/pq"
)

// Department identifies a clearing office.
type Department string

const (
	DepartmentFinance  Department = "finance"
	DepartmentLibrary  Department = "library"
	DepartmentAcademic Department = "academic"
)

// BaseDepartments are fanned out for every registration request.
var BaseDepartments = []Department{DepartmentFinance, DepartmentLibrary}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	switch d {
	case DepartmentFinance, DepartmentLibrary, DepartmentAcademic:
		return true
	}
	return false
}

// ClearanceStatus is a department verdict.
type ClearanceStatus string

const (
	ClearanceStatusPending  ClearanceStatus = "pending"
	ClearanceStatusApproved ClearanceStatus = "approved"
	ClearanceStatusRejected ClearanceStatus = "rejected"
)

// Valid reports whether s is a known clearance status.
func (s ClearanceStatus) Valid() bool {
	switch s {
	case ClearanceStatusPending, ClearanceStatusApproved, ClearanceStatusRejected:
		return true
	}
	return false
}

// Clearance is one department's verdict on a registration request.
type Clearance struct {
	ID           string          `db:"id" json:"id"`
	Department   Department      `db:"department" json:"department"`
	Status       ClearanceStatus `db:"status" json:"status"`
	Message      *string         `db:"message" json:"message,omitempty"`
	RespondedBy  *string         `db:"responded_by" json:"respondedBy,omitempty"`
	ResponseDate *time.Time      `db:"response_date" json:"responseDate,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// ClearanceAudit is an append-only record of a clearance status transition.
type ClearanceAudit struct {
	ID             string           `db:"id" json:"id"`
	ClearanceID    string           `db:"clearance_id" json:"clearanceId"`
	PreviousStatus *ClearanceStatus `db:"previous_status" json:"previousStatus,omitempty"`
	NewStatus      ClearanceStatus  `db:"new_status" json:"newStatus"`
	CreatedBy      string           `db:"created_by" json:"createdBy"`
	Date           time.Time        `db:"date" json:"date"`
	Message        *string          `db:"message" json:"message,omitempty"`
	Modules        pq.StringArray   `db:"modules" json:"modules"`
}

// ClearanceQueueRow is a registration request as seen from one department's queue,
// carrying every linked clearance status so the aggregate can be derived.
type ClearanceQueueRow struct {
	RegistrationRequest
	ClearanceID       string          `db:"clearance_id" json:"clearanceId"`
	DepartmentStatus  ClearanceStatus `db:"department_status" json:"departmentStatus"`
	ClearanceStatuses pq.StringArray  `db:"clearance_statuses" json:"-"`
}

// ClearanceQueueItem is a queue row with its derived aggregate status.
type ClearanceQueueItem struct {
	ClearanceQueueRow
	AggregateStatus RegistrationStatus `db:"aggregate_status" json:"aggregateStatus"`
}

// ClearanceQueueFilter constrains department queue listings.
type ClearanceQueueFilter struct {
	Department Department
	TermID     string
	Status     RegistrationStatus
	Page       int
	PageSize   int
}
