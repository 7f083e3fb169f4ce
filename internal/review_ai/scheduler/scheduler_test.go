package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNextSlot(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	tests := []struct {
		name  string
		now   time.Time
		every time.Duration
		want  time.Time
	}{
		{"mid slot", time.Date(2025, 3, 1, 4, 10, 0, 0, loc), 3 * time.Hour, time.Date(2025, 3, 1, 6, 0, 0, 0, loc)},
		{"on boundary", time.Date(2025, 3, 1, 9, 0, 0, 0, loc), 3 * time.Hour, time.Date(2025, 3, 1, 9, 0, 0, 0, loc)},
		{"after last slot", time.Date(2025, 3, 1, 22, 30, 0, 0, loc), 3 * time.Hour, time.Date(2025, 3, 2, 0, 0, 0, 0, loc)},
		{"daily", time.Date(2025, 3, 1, 1, 0, 0, 0, loc), 24 * time.Hour, time.Date(2025, 3, 2, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextSlot(tt.now, loc, tt.every)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestRetryDelay(t *testing.T) {
	w := &Worker{}
	assert.Equal(t, 15*time.Second, w.retryDelay(1))
	assert.Equal(t, 30*time.Second, w.retryDelay(2))
	assert.Equal(t, 120*time.Second, w.retryDelay(4))
}

func TestRunWithRetry(t *testing.T) {
	w := &Worker{Log: zap.NewNop(), MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	ok := w.runWithRetry(context.Background(), Job{Name: "flaky", Run: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}})
	assert.True(t, ok)
	assert.Equal(t, 3, calls)

	calls = 0
	ok = w.runWithRetry(context.Background(), Job{Name: "broken", Run: func(context.Context) error {
		calls++
		return errors.New("boom")
	}})
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	w := &Worker{
		Log:        zap.NewNop(),
		Every:      time.Hour,
		RunAtStart: true,
		Jobs: []Job{{Name: "once", Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		}}},
	}

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run at start")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
