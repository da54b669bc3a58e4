package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/internal/repository"
	"github.com/ntholi/registry-web-sub009/pkg/database"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

type sponsorshipStore interface {
	UpsertStudent(ctx context.Context, student *models.SponsoredStudent, audit *models.AuditContext) (repository.UpsertResult, error)
	LinkTerm(ctx context.Context, sponsoredStudentID, termID string) (bool, error)
}

// SponsorshipLink reports the outcome of linking a sponsorship.
type SponsorshipLink struct {
	SponsoredStudentID string                  `json:"sponsoredStudentId"`
	Student            repository.UpsertResult `json:"student"`
	TermLinked         bool                    `json:"termLinked"`
}

// SponsorshipService links a student to a sponsor for a term without duplicating either link.
type SponsorshipService struct {
	repo   sponsorshipStore
	tx     txProvider
	logger *zap.Logger
}

// NewSponsorshipService constructs SponsorshipService.
func NewSponsorshipService(repo sponsorshipStore, tx txProvider, logger *zap.Logger) *SponsorshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SponsorshipService{repo: repo, tx: tx, logger: logger}
}

// Link upserts the (sponsor, student) row and inserts the term link when absent.
// Joins the transaction carried by ctx when there is one.
func (s *SponsorshipService) Link(ctx context.Context, stdNo int64, termID string, sponsorship models.Sponsorship, audit *models.AuditContext) (*SponsorshipLink, error) {
	sponsorID := strings.TrimSpace(sponsorship.SponsorID)
	if sponsorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sponsorId is required")
	}
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}

	student := &models.SponsoredStudent{
		SponsorID:     sponsorID,
		StdNo:         stdNo,
		BorrowerNo:    trimmed(sponsorship.BorrowerNo),
		BankName:      trimmed(sponsorship.BankName),
		AccountNumber: trimmed(sponsorship.AccountNumber),
	}

	link := &SponsorshipLink{}
	err := database.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		result, err := s.repo.UpsertStudent(ctx, student, audit)
		if err != nil {
			return err
		}
		linked, err := s.repo.LinkTerm(ctx, student.ID, termID)
		if err != nil {
			return err
		}
		link.SponsoredStudentID = student.ID
		link.Student = result
		link.TermLinked = linked
		return nil
	})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to link sponsorship")
	}

	s.logger.Debug("sponsorship linked",
		zap.Int64("std_no", stdNo),
		zap.String("sponsor_id", sponsorID),
		zap.String("term_id", termID),
		zap.String("student", string(link.Student)),
		zap.Bool("term_linked", link.TermLinked),
	)
	return link, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
