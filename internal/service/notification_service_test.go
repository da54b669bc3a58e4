package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/pkg/jobs"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []NotificationEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event NotificationEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

type fullQueue struct{}

func (fullQueue) TryEnqueue(string, NotificationEvent) error { return jobs.ErrQueueFull }

type outcomeRecorder struct {
	outcomes []string
}

func (o *outcomeRecorder) ObserveNotification(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestNotificationServiceDeliversThroughQueue(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	svc := NewNotificationService(dispatcher, nil, zap.NewNop())
	queue := jobs.New("notifications", svc.Handle, jobs.Config{Workers: 1, BufferSize: 4})
	queue.Start()
	svc.Bind(queue)

	svc.Notify(context.Background(), NotificationEvent{Type: EventRegistrationSubmitted, StdNo: 901000001, RequestID: "req-1"})

	require.NoError(t, queue.Stop(context.Background()))
	require.Equal(t, 1, dispatcher.count())
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.False(t, dispatcher.events[0].OccurredAt.IsZero())
}

func TestNotificationServiceDropsWhenFull(t *testing.T) {
	metrics := &outcomeRecorder{}
	svc := NewNotificationService(&recordingDispatcher{}, metrics, zap.NewNop())
	svc.Bind(fullQueue{})

	svc.Notify(context.Background(), NotificationEvent{Type: EventClearanceResponded})
	assert.Equal(t, []string{"dropped"}, metrics.outcomes)
}

func TestNotificationServiceHandleReportsDispatchFailure(t *testing.T) {
	svc := NewNotificationService(&recordingDispatcher{err: errors.New("smtp down")}, nil, zap.NewNop())
	err := svc.Handle(context.Background(), jobs.Job[NotificationEvent]{ID: "job-1", Payload: NotificationEvent{Type: EventRegistrationUpdated}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestNotificationServiceNilIsNoop(t *testing.T) {
	var svc *NotificationService
	svc.Notify(context.Background(), NotificationEvent{Type: EventRegistrationSubmitted})
}
