package dto

import "github.com/ntholi/registry-web-sub009/internal/models"

// SponsorshipPayload carries sponsor and bank details submitted with a registration.
type SponsorshipPayload struct {
	SponsorID     string  `json:"sponsorId" validate:"required"`
	BorrowerNo    *string `json:"borrowerNo,omitempty"`
	BankName      *string `json:"bankName,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
}

// Model converts the payload into a sponsorship value.
func (p *SponsorshipPayload) Model() models.Sponsorship {
	if p == nil {
		return models.Sponsorship{}
	}
	return models.Sponsorship{
		SponsorID: p.SponsorID,
		BankDetails: models.BankDetails{
			BorrowerNo:    p.BorrowerNo,
			BankName:      p.BankName,
			AccountNumber: p.AccountNumber,
		},
	}
}

// ModuleSelectionPayload is one selected module.
type ModuleSelectionPayload struct {
	SemesterModuleID string `json:"semesterModuleId" validate:"required"`
	ModuleStatus     string `json:"moduleStatus" validate:"required"`
}

// CreateRegistrationRequest is the body of POST /registrations.
type CreateRegistrationRequest struct {
	StdNo          int64                    `json:"stdNo" validate:"required,gt=0"`
	TermID         string                   `json:"termId" validate:"required"`
	SemesterNumber string                   `json:"semesterNumber"`
	SemesterStatus string                   `json:"semesterStatus" validate:"required,oneof=Active Repeat"`
	Sponsorship    *SponsorshipPayload      `json:"sponsorship,omitempty"`
	Modules        []ModuleSelectionPayload `json:"modules" validate:"dive"`
	Message        *string                  `json:"message,omitempty"`
}

// UpdateRegistrationRequest is the body of PUT /registrations/:id.
type UpdateRegistrationRequest struct {
	Modules        []ModuleSelectionPayload `json:"modules" validate:"dive"`
	SemesterNumber *string                  `json:"semesterNumber,omitempty"`
	SemesterStatus *string                  `json:"semesterStatus,omitempty" validate:"omitempty,oneof=Active Repeat"`
	TermID         *string                  `json:"termId,omitempty"`
	Sponsorship    *SponsorshipPayload      `json:"sponsorship,omitempty"`
	Message        *string                  `json:"message,omitempty"`
}

// CompleteRegistrationRequest is the body of POST /registrations/:id/complete.
// An empty module list registers every requested module.
type CompleteRegistrationRequest struct {
	SemesterModuleIDs []string `json:"semesterModuleIds"`
}

// SemesterStatusRequest is the body of POST /students/:stdNo/semester-status.
type SemesterStatusRequest struct {
	Modules []ModuleSelectionPayload `json:"modules" validate:"required,min=1,dive"`
}

// Selections converts module payloads into selections.
func Selections(payload []ModuleSelectionPayload) []models.ModuleSelection {
	selections := make([]models.ModuleSelection, 0, len(payload))
	for _, item := range payload {
		selections = append(selections, models.ModuleSelection{
			SemesterModuleID: item.SemesterModuleID,
			ModuleStatus:     models.ModuleStatus(item.ModuleStatus),
		})
	}
	return selections
}
