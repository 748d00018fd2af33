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

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("orphan-cleanup", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotStarted))
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	q := NewQueue("orphan-cleanup", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("blob store unavailable")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	require.NoError(t, q.Enqueue(Job{ID: "blob-1"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	var (
		mu        sync.Mutex
		exhausted []Job
	)
	q := NewQueue("orphan-cleanup", func(context.Context, Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnExhausted: func(job Job, err error) {
			mu.Lock()
			defer mu.Unlock()
			exhausted = append(exhausted, job)
		},
	})
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	require.NoError(t, q.Enqueue(Job{ID: "blob-2", Type: "media.orphan.delete"}))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(exhausted) == 1
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "blob-2", exhausted[0].ID)
	assert.Equal(t, 3, exhausted[0].Attempt)
}

func TestStopRejectsFurtherJobs(t *testing.T) {
	q := NewQueue("orphan-cleanup", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
	assert.Equal(t, 0, q.Pending())
}
