package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

type fakeAuditReader struct {
	filter models.AuditLogFilter
	logs   []models.AuditLog
	err    error
}

func (f *fakeAuditReader) List(_ context.Context, filter models.AuditLogFilter) ([]models.AuditLog, error) {
	f.filter = filter
	return f.logs, f.err
}

func TestAuditServiceListTrimsFilter(t *testing.T) {
	reader := &fakeAuditReader{logs: []models.AuditLog{{ID: "log-1"}}}
	svc := NewAuditService(reader)

	logs, err := svc.List(context.Background(), models.AuditLogFilter{TableName: " registration_requests ", RecordID: " req-1 ", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, models.AuditLogFilter{TableName: "registration_requests", RecordID: "req-1", Limit: 10}, reader.filter)
}

func TestAuditServiceListValidates(t *testing.T) {
	svc := NewAuditService(&fakeAuditReader{})

	_, err := svc.List(context.Background(), models.AuditLogFilter{TableName: "registration_requests"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.Kind(err))

	_, err = svc.List(context.Background(), models.AuditLogFilter{TableName: "users", RecordID: "u-1"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.Kind(err))
}

func TestAuditServiceListWrapsStorageFailure(t *testing.T) {
	svc := NewAuditService(&fakeAuditReader{err: errors.New("connection reset")})

	_, err := svc.List(context.Background(), models.AuditLogFilter{TableName: "clearances", RecordID: "c-1"})
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.Kind(err))
}
