package models

import "time"

// BankDetails are the borrower and bank fields carried by a sponsorship.
type BankDetails struct {
	BorrowerNo    *string `json:"borrowerNo,omitempty"`
	BankName      *string `json:"bankName,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
}

// SponsoredStudent links a sponsor to a student; unique on (sponsor_id, std_no).
type SponsoredStudent struct {
	ID            string     `db:"id" json:"id"`
	SponsorID     string     `db:"sponsor_id" json:"sponsorId"`
	StdNo         int64      `db:"std_no" json:"stdNo"`
	BorrowerNo    *string    `db:"borrower_no" json:"borrowerNo,omitempty"`
	BankName      *string    `db:"bank_name" json:"bankName,omitempty"`
	AccountNumber *string    `db:"account_number" json:"accountNumber,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// SponsoredTerm links a sponsored student to a term; unique on (sponsored_student_id, term_id).
type SponsoredTerm struct {
	ID                 string    `db:"id" json:"id"`
	SponsoredStudentID string    `db:"sponsored_student_id" json:"sponsoredStudentId"`
	TermID             string    `db:"term_id" json:"termId"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

// Sponsorship is the sponsorship payload accompanying a registration.
type Sponsorship struct {
	SponsorID string `json:"sponsorId" validate:"required"`
	BankDetails
}
