package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/pkg/jobs"
)

// Notification event types.
const (
	EventRegistrationSubmitted = "registration.submitted"
	EventRegistrationUpdated   = "registration.updated"
	EventRegistrationCompleted = "registration.completed"
	EventClearanceResponded    = "clearance.responded"
)

// NotificationEvent is a workflow event addressed to a student.
type NotificationEvent struct {
	Type       string    `json:"type"`
	StdNo      int64     `json:"stdNo"`
	RequestID  string    `json:"requestId"`
	Department string    `json:"department,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Dispatcher delivers a notification event. Email and push delivery live outside this service.
type Dispatcher interface {
	Dispatch(ctx context.Context, event NotificationEvent) error
}

// LogDispatcher writes events to the log.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher constructs LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the event.
func (d *LogDispatcher) Dispatch(_ context.Context, event NotificationEvent) error {
	d.logger.Info("notification",
		zap.String("type", event.Type),
		zap.Int64("std_no", event.StdNo),
		zap.String("request_id", event.RequestID),
		zap.String("department", event.Department),
		zap.String("status", event.Status),
	)
	return nil
}

type enqueuer interface {
	TryEnqueue(id string, event NotificationEvent) error
}

type notificationMetrics interface {
	ObserveNotification(outcome string)
}

// NotificationService hands events to a background queue without waiting for delivery.
type NotificationService struct {
	queue      enqueuer
	dispatcher Dispatcher
	metrics    notificationMetrics
	logger     *zap.Logger
}

// NewNotificationService constructs NotificationService. Attach a queue with Bind before Notify.
func NewNotificationService(dispatcher Dispatcher, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = NewLogDispatcher(logger)
	}
	return &NotificationService{dispatcher: dispatcher, metrics: metrics, logger: logger}
}

// Bind attaches the queue that Notify enqueues on.
func (s *NotificationService) Bind(queue enqueuer) {
	s.queue = queue
}

// Notify enqueues event. A full or missing queue drops the event with a warning.
func (s *NotificationService) Notify(_ context.Context, event NotificationEvent) {
	if s == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if s.queue == nil {
		s.logger.Warn("notification dropped: queue not bound", zap.String("type", event.Type))
		s.observe("dropped")
		return
	}
	err := s.queue.TryEnqueue(uuid.NewString(), event)
	if err != nil {
		level := s.logger.Error
		if errors.Is(err, jobs.ErrQueueFull) {
			level = s.logger.Warn
		}
		level("notification dropped", zap.String("type", event.Type), zap.String("request_id", event.RequestID), zap.Error(err))
		s.observe("dropped")
		return
	}
	s.observe("queued")
}

// Handle is the queue handler delivering one notification.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job[NotificationEvent]) error {
	if err := s.dispatcher.Dispatch(ctx, job.Payload); err != nil {
		s.observe("failed")
		return fmt.Errorf("dispatch %s: %w", job.Payload.Type, err)
	}
	s.observe("delivered")
	return nil
}

func (s *NotificationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(outcome)
	}
}
