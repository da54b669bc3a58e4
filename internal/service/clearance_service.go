package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/internal/dto"
	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	"github.com/ntholi/registry-web-sub009/pkg/database"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

const (
	queueGenerationKey = "clearance:queue:generation"
	queueCountPattern  = "clearance:queue:count:*"

	defaultQueuePageSize = 20
	maxQueuePageSize     = 100
)

type clearanceStore interface {
	CreateForRequest(ctx context.Context, requestID string, departments []models.Department, audit *models.AuditContext) ([]models.Clearance, error)
	FindByID(ctx context.Context, id string) (*models.Clearance, error)
	FindForUpdate(ctx context.Context, id string) (*models.Clearance, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Clearance, error)
	FindForDepartment(ctx context.Context, requestID string, department models.Department) (*models.Clearance, error)
	FindRequestID(ctx context.Context, clearanceID string) (string, error)
	Update(ctx context.Context, clearance *models.Clearance, audit *models.AuditContext) error
	InsertAudit(ctx context.Context, entry *models.ClearanceAudit) error
	ListAudit(ctx context.Context, clearanceID string) ([]models.ClearanceAudit, error)
	ListQueue(ctx context.Context, filter models.ClearanceQueueFilter) ([]models.ClearanceQueueItem, error)
	CountQueue(ctx context.Context, filter models.ClearanceQueueFilter) (int, error)
}

type registrationLocker interface {
	FindForUpdate(ctx context.Context, id string) (*models.RegistrationRequest, error)
}

type queueCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

type clearanceMetrics interface {
	ObserveClearanceResponse(department models.Department, status models.ClearanceStatus)
	RecordCacheOperation(hit bool, duration time.Duration)
}

type notifier interface {
	Notify(ctx context.Context, event NotificationEvent)
}

// AggregateStatus derives a request's overall status from its clearances.
// Enrolled requests keep their own status; otherwise rejected beats pending beats approved,
// and a request without clearances is never approved.
func AggregateStatus(requestStatus models.RegistrationStatus, clearances []models.ClearanceStatus) models.RegistrationStatus {
	if requestStatus.Enrolled() {
		return requestStatus
	}
	if len(clearances) == 0 {
		return models.RegistrationStatusPending
	}
	pending := false
	for _, status := range clearances {
		switch status {
		case models.ClearanceStatusRejected:
			return models.RegistrationStatusRejected
		case models.ClearanceStatusApproved:
		default:
			pending = true
		}
	}
	if pending {
		return models.RegistrationStatusPending
	}
	return models.RegistrationStatusApproved
}

// ClearanceService fans out, resets, answers and summarises department clearances.
type ClearanceService struct {
	store     clearanceStore
	requests  registrationLocker
	cache     queueCache
	tx        txProvider
	notifier  notifier
	metrics   clearanceMetrics
	cfg       config.ClearanceConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// ClearanceServiceParams groups ClearanceService collaborators.
type ClearanceServiceParams struct {
	Store     clearanceStore
	Requests  registrationLocker
	Cache     queueCache
	Tx        txProvider
	Notifier  notifier
	Metrics   clearanceMetrics
	Config    config.ClearanceConfig
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewClearanceService constructs ClearanceService.
func NewClearanceService(p ClearanceServiceParams) *ClearanceService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Config.QueueCacheTTL <= 0 {
		p.Config.QueueCacheTTL = 2 * time.Minute
	}
	return &ClearanceService{
		store:     p.Store,
		requests:  p.Requests,
		cache:     p.Cache,
		tx:        p.Tx,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
		cfg:       p.Config,
		validator: p.Validator,
		logger:    p.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Fanout creates one pending clearance per department for a request.
// Runs inside the caller's transaction when ctx carries one.
func (s *ClearanceService) Fanout(ctx context.Context, requestID string, departments []models.Department, audit *models.AuditContext) ([]models.Clearance, error) {
	for _, department := range departments {
		if !department.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown department %q", department))
		}
	}
	clearances, err := s.store.CreateForRequest(ctx, requestID, departments, audit)
	if err != nil {
		return nil, err
	}
	return clearances, nil
}

// ResetDepartment puts the department's clearance back to pending and records the transition.
// It reports whether anything changed.
func (s *ClearanceService) ResetDepartment(ctx context.Context, requestID string, department models.Department, reason string, audit *models.AuditContext) (bool, error) {
	clearance, err := s.store.FindForDepartment(ctx, requestID, department)
	if err != nil {
		return false, err
	}
	if clearance == nil || clearance.Status == models.ClearanceStatusPending {
		return false, nil
	}

	previous := clearance.Status
	clearance.Status = models.ClearanceStatusPending
	clearance.RespondedBy = nil
	clearance.ResponseDate = nil
	clearance.Message = &reason
	if err := s.store.Update(ctx, clearance, audit); err != nil {
		return false, err
	}

	entry := &models.ClearanceAudit{
		ClearanceID:    clearance.ID,
		PreviousStatus: &previous,
		NewStatus:      models.ClearanceStatusPending,
		CreatedBy:      actorOf(audit),
		Date:           s.now(),
		Message:        &reason,
	}
	if err := s.store.InsertAudit(ctx, entry); err != nil {
		return false, err
	}
	s.logger.Info("clearance reset",
		zap.String("request_id", requestID),
		zap.String("department", string(department)),
		zap.String("previous_status", string(previous)),
	)
	return true, nil
}

// ForRequest returns a request's clearances and its aggregate status.
func (s *ClearanceService) ForRequest(ctx context.Context, request *models.RegistrationRequest) ([]models.Clearance, models.RegistrationStatus, error) {
	clearances, err := s.store.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, "", appErrors.Storage(err, "failed to load clearances")
	}
	return clearances, AggregateStatus(request.Status, clearanceStatuses(clearances)), nil
}

// Respond records a department verdict on a clearance.
func (s *ClearanceService) Respond(ctx context.Context, clearanceID string, req dto.RespondClearanceRequest, actor *models.JWTClaims) (*models.Clearance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clearance response")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	existing, err := s.store.FindByID(ctx, clearanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Storage(err, "failed to load clearance")
	}
	if department, ok := actor.Role.Department(); ok && department != existing.Department {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "clearance belongs to another department")
	}
	requestID, err := s.store.FindRequestID(ctx, clearanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance is not linked to a registration")
		}
		return nil, appErrors.Storage(err, "failed to load clearance link")
	}

	status := models.ClearanceStatus(req.Status)
	audit := actor.AuditContext()
	var (
		updated *models.Clearance
		request *models.RegistrationRequest
	)
	err = database.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		request, err = s.requests.FindForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status.Enrolled() {
			return appErrors.Clone(appErrors.ErrConflict, "registration already completed")
		}
		audit.StdNo = &request.StdNo

		clearance, err := s.store.FindForUpdate(ctx, clearanceID)
		if err != nil {
			return err
		}
		previous := clearance.Status
		now := s.now()
		responder := actor.UserID
		clearance.Status = status
		clearance.Message = req.Message
		clearance.RespondedBy = &responder
		clearance.ResponseDate = &now
		if err := s.store.Update(ctx, clearance, audit); err != nil {
			return err
		}
		if err := s.store.InsertAudit(ctx, &models.ClearanceAudit{
			ClearanceID:    clearance.ID,
			PreviousStatus: &previous,
			NewStatus:      status,
			CreatedBy:      responder,
			Date:           now,
			Message:        req.Message,
			Modules:        req.Modules,
		}); err != nil {
			return err
		}
		updated = clearance
		return nil
	})
	if err != nil {
		return nil, txError(err, "failed to record clearance response")
	}

	s.InvalidateQueue(ctx)
	if s.metrics != nil {
		s.metrics.ObserveClearanceResponse(updated.Department, updated.Status)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, NotificationEvent{
			Type:       EventClearanceResponded,
			StdNo:      request.StdNo,
			RequestID:  request.ID,
			Department: string(updated.Department),
			Status:     string(updated.Status),
			Message:    stringValue(updated.Message),
		})
	}
	s.logger.Info("clearance responded",
		zap.String("clearance_id", updated.ID),
		zap.String("department", string(updated.Department)),
		zap.String("status", string(updated.Status)),
		zap.String("responded_by", actor.UserID),
	)
	return updated, nil
}

// History returns the status transitions of a clearance.
func (s *ClearanceService) History(ctx context.Context, clearanceID string) ([]models.ClearanceAudit, error) {
	if _, err := s.store.FindByID(ctx, clearanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance not found")
		}
		return nil, appErrors.Storage(err, "failed to load clearance")
	}
	entries, err := s.store.ListAudit(ctx, clearanceID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load clearance history")
	}
	return entries, nil
}

// Queue lists one page of a department's requests with their aggregate status.
// The total comes from the same source as Count, so both always agree.
func (s *ClearanceService) Queue(ctx context.Context, filter models.ClearanceQueueFilter) ([]models.ClearanceQueueItem, *models.Pagination, error) {
	if !filter.Department.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "a valid department is required")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > maxQueuePageSize {
		filter.PageSize = defaultQueuePageSize
	}

	total, err := s.store.CountQueue(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to count clearance queue")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if (filter.Page-1)*filter.PageSize >= total {
		return []models.ClearanceQueueItem{}, pagination, nil
	}

	items, err := s.store.ListQueue(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to load clearance queue")
	}
	for i := range items {
		s.checkAggregate(&items[i])
	}
	return items, pagination, nil
}

// Count returns the number of queue items matching filter, served from cache when possible.
// Cached counts are keyed by the queue generation, so a count computed before an
// invalidation is never read after it.
func (s *ClearanceService) Count(ctx context.Context, filter models.ClearanceQueueFilter) (int, error) {
	if !filter.Department.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "a valid department is required")
	}

	key, cacheable := s.queueCountKey(ctx, filter)
	if cacheable {
		start := time.Now()
		var cached int
		err := s.cache.Get(ctx, key, &cached)
		hit := err == nil
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(hit, time.Since(start))
		}
		if hit {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("queue count cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	count, err := s.store.CountQueue(ctx, filter)
	if err != nil {
		return 0, appErrors.Storage(err, "failed to count clearance queue")
	}
	if cacheable {
		if err := s.cache.Set(ctx, key, count, s.cfg.QueueCacheTTL); err != nil {
			s.logger.Warn("queue count cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count, nil
}

// InvalidateQueue moves every cached queue count to a new generation. When the
// generation cannot be bumped the counts are deleted instead. Failures are logged, never returned.
func (s *ClearanceService) InvalidateQueue(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.Incr(ctx, queueGenerationKey)
	if err == nil {
		return
	}
	s.logger.Warn("queue generation bump failed", zap.Error(err))
	if _, err := s.cache.DeleteByPattern(ctx, queueCountPattern); err != nil {
		s.logger.Error("queue cache invalidation failed", zap.Error(err))
	}
}

// queueCountKey reports false when the current generation cannot be read; the count
// then bypasses the cache.
func (s *ClearanceService) queueCountKey(ctx context.Context, filter models.ClearanceQueueFilter) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	var generation int64
	if err := s.cache.Get(ctx, queueGenerationKey, &generation); err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("queue generation read failed", zap.Error(err))
		return "", false
	}
	return strings.Join([]string{
		"clearance", "queue", "count",
		strconv.FormatInt(generation, 10),
		string(filter.Department), filter.TermID, string(filter.Status),
	}, ":"), true
}

// checkAggregate recomputes the aggregate of a queue item and keeps the Go result
// when the database disagrees.
func (s *ClearanceService) checkAggregate(item *models.ClearanceQueueItem) {
	statuses := make([]models.ClearanceStatus, len(item.ClearanceStatuses))
	for i, status := range item.ClearanceStatuses {
		statuses[i] = models.ClearanceStatus(status)
	}
	aggregate := AggregateStatus(item.Status, statuses)
	if item.AggregateStatus != aggregate {
		s.logger.Error("queue aggregate mismatch",
			zap.String("request_id", item.ID),
			zap.String("database", string(item.AggregateStatus)),
			zap.String("derived", string(aggregate)),
		)
		item.AggregateStatus = aggregate
	}
}

// txError passes typed errors raised inside a transaction through and wraps the rest.
func txError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return appErrors.Storage(err, message)
}

func actorOf(audit *models.AuditContext) string {
	if audit == nil || audit.ActorID == "" {
		return "system"
	}
	return audit.ActorID
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
