package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/internal/repository"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

type fakeSponsorshipStore struct {
	students map[string]*models.SponsoredStudent
	terms    map[string]bool
	linkErr  error
}

func newFakeSponsorshipStore() *fakeSponsorshipStore {
	return &fakeSponsorshipStore{students: map[string]*models.SponsoredStudent{}, terms: map[string]bool{}}
}

func (f *fakeSponsorshipStore) UpsertStudent(_ context.Context, student *models.SponsoredStudent, _ *models.AuditContext) (repository.UpsertResult, error) {
	key := fmt.Sprintf("%s/%d", student.SponsorID, student.StdNo)
	existing, ok := f.students[key]
	if !ok {
		student.ID = "ss-" + student.SponsorID
		copied := *student
		f.students[key] = &copied
		return repository.UpsertInserted, nil
	}
	student.ID = existing.ID
	if stringValue(existing.AccountNumber) == stringValue(student.AccountNumber) {
		return repository.UpsertUnchanged, nil
	}
	existing.AccountNumber = student.AccountNumber
	return repository.UpsertUpdated, nil
}

func (f *fakeSponsorshipStore) LinkTerm(_ context.Context, sponsoredStudentID, termID string) (bool, error) {
	if f.linkErr != nil {
		return false, f.linkErr
	}
	key := sponsoredStudentID + "/" + termID
	if f.terms[key] {
		return false, nil
	}
	f.terms[key] = true
	return true, nil
}

func TestSponsorshipLinkIsIdempotent(t *testing.T) {
	db, mock := newTxMock(t)
	store := newFakeSponsorshipStore()
	svc := NewSponsorshipService(store, db, zap.NewNop())

	account := " 0012 "
	sponsorship := models.Sponsorship{SponsorID: "NMDS", BankDetails: models.BankDetails{AccountNumber: &account}}

	mock.ExpectBegin()
	mock.ExpectCommit()
	first, err := svc.Link(context.Background(), testStdNo, "term-1", sponsorship, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertInserted, first.Student)
	assert.True(t, first.TermLinked)
	assert.Equal(t, "0012", *store.students[fmt.Sprintf("NMDS/%d", testStdNo)].AccountNumber)

	mock.ExpectBegin()
	mock.ExpectCommit()
	second, err := svc.Link(context.Background(), testStdNo, "term-1", sponsorship, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertUnchanged, second.Student)
	assert.False(t, second.TermLinked)
	assert.Equal(t, first.SponsoredStudentID, second.SponsoredStudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSponsorshipLinkValidates(t *testing.T) {
	db, _ := newTxMock(t)
	svc := NewSponsorshipService(newFakeSponsorshipStore(), db, nil)

	_, err := svc.Link(context.Background(), testStdNo, "term-1", models.Sponsorship{SponsorID: "  "}, nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.Kind(err))

	_, err = svc.Link(context.Background(), testStdNo, "", models.Sponsorship{SponsorID: "NMDS"}, nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.Kind(err))
}

func TestSponsorshipLinkRollsBackOnFailure(t *testing.T) {
	db, mock := newTxMock(t)
	store := newFakeSponsorshipStore()
	store.linkErr = errors.New("deadlock detected")
	svc := NewSponsorshipService(store, db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Link(context.Background(), testStdNo, "term-1", models.Sponsorship{SponsorID: "NMDS"}, nil)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.Kind(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrimmed(t *testing.T) {
	blank := "   "
	assert.Nil(t, trimmed(nil))
	assert.Nil(t, trimmed(&blank))
}
