package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *statusRecorder) ObserveSend(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func TestDispatcherPreservesOrderPerKey(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 400})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 50; i++ {
		for _, chat := range []int64{1, 2, -100500} {
			chat, i := chat, i
			require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for _, chat := range []int64{1, 2, -100500} {
		require.Len(t, got[chat], 50, "chat %d", chat)
		for i, v := range got[chat] {
			assert.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	rec := &statusRecorder{}
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond, Observer: rec})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 7, "send.text", func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{StatusOK}, rec.all())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherStopsOnPermanentError(t *testing.T) {
	rec := &statusRecorder{}
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond, Observer: rec})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 7, "send.text", func() error {
		calls.Add(1)
		return errors.New("telegram: bad request: chat not found (400)")
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{StatusFail}, rec.all())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRetriesServerErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 7, "send.text", func() error {
		if calls.Add(1) == 1 {
			return &tele.Error{Code: 502, Description: "Bad Gateway"}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(timeoutErr{}))
	assert.True(t, shouldRetry(errors.New("telegram: too many requests (429)")))
	assert.True(t, shouldRetry(&tele.Error{Code: 500}))
	assert.False(t, shouldRetry(errors.New("telegram: forbidden: bot was blocked by the user (403)")))
	assert.Zero(t, retryAfter(errors.New("x")))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "block", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, "queued", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), 1, "overflow", func() error { return nil }), ErrQueueFull)
	close(release)
	d.Close()
}

func TestDispatcherEnqueueWait(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "block", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	var order []string
	var mu sync.Mutex
	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	require.NoError(t, d.Enqueue(context.Background(), 1, "queued", record("queued")))
	assert.ErrorIs(t, d.EnqueueWait(context.Background(), 1, "late", record("late"), 5*time.Millisecond), ErrQueueFull)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, d.EnqueueWait(context.Background(), 1, "waited", record("waited"), time.Second))
	d.Close()

	assert.Equal(t, []string{"queued", "waited"}, order)
}

func TestClassifyError(t *testing.T) {
	cases := map[string]error{
		"timeout":  timeoutErr{},
		"http_4xx": errors.New("telegram: bad request (400)"),
		"http_5xx": fmt.Errorf("wrap: %w", &tele.Error{Code: 502}),
		"unknown":  errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, classifyError(err), "%v", err)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": EOF`)
	msg := sanitizeErrorMessage(err)
	assert.Contains(t, msg, "bot<redacted>")
	assert.NotContains(t, msg, "123456")
}
