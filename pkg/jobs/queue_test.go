package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	q := New("test", func(ctx context.Context, job Job[string]) error {
		mu.Lock()
		seen = append(seen, job.ID+"="+job.Payload)
		mu.Unlock()
		return nil
	}, Config{Workers: 2})
	q.Start()

	require.NoError(t, q.TryEnqueue("a", "registration.submitted"))
	require.NoError(t, q.TryEnqueue("b", "clearance.responded"))
	require.NoError(t, q.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a=registration.submitted", "b=clearance.responded"}, seen)
}

func TestTryEnqueueFailsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := New("full", func(ctx context.Context, job Job[int]) error {
		<-block
		return nil
	}, Config{Workers: 1, BufferSize: 1})
	q.Start()
	defer func() {
		close(block)
		_ = q.Stop(context.Background())
	}()

	var err error
	for i := 0; i < 5 && err == nil; i++ {
		err = q.TryEnqueue("x", i)
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestTryEnqueueRefusedOutsideLifecycle(t *testing.T) {
	q := New("idle", func(ctx context.Context, job Job[int]) error { return nil }, Config{})
	assert.ErrorIs(t, q.TryEnqueue("x", 1), ErrQueueClosed)

	q.Start()
	require.NoError(t, q.Stop(context.Background()))
	assert.ErrorIs(t, q.TryEnqueue("y", 2), ErrQueueClosed)
	require.NoError(t, q.Stop(context.Background()))
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	q := New("retry", func(ctx context.Context, job Job[int]) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("smtp busy")
		}
		return nil
	}, Config{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start()

	require.NoError(t, q.TryEnqueue("r", 1))
	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := New("exhaust", func(ctx context.Context, job Job[int]) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("rejected")
	}, Config{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start()

	require.NoError(t, q.TryEnqueue("r", 1))
	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestStopCancelsHandlersWhenDeadlinePasses(t *testing.T) {
	started := make(chan struct{})
	q := New("slow", func(ctx context.Context, job Job[int]) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, Config{Workers: 1, MaxRetries: 5})
	q.Start()
	require.NoError(t, q.TryEnqueue("s", 1))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)
}
