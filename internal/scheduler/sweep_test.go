package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/logger"
)

type countingEnqueuer struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (e *countingEnqueuer) EnqueueSweep(context.Context) (string, error) {
	e.calls.Add(1)
	if e.block != nil {
		<-e.block
	}
	return "task-1", e.err
}

type fakeSweeper struct {
	removed int64
	err     error
}

func (f fakeSweeper) DeleteOrphans(context.Context) (int64, error) {
	return f.removed, f.err
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("30 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 * * * *"))
}

func TestNextRunTime(t *testing.T) {
	from := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)
	next, err := NextRunTime("30 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 30, 0, 0, time.UTC), next)

	_, err = NextRunTime("bogus", from)
	assert.Error(t, err)
}

func TestSweepScheduler_Disabled(t *testing.T) {
	s := NewSweepScheduler(&countingEnqueuer{}, false, "30 3 * * *", logger.Nop())
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestSweepScheduler_InvalidSchedule(t *testing.T) {
	s := NewSweepScheduler(&countingEnqueuer{}, true, "not a schedule", logger.Nop())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestSweepScheduler_StartStop(t *testing.T) {
	s := NewSweepScheduler(&countingEnqueuer{}, true, "30 3 * * *", logger.Nop())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.GetNextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	// Second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())

	// Stop is idempotent
	s.Stop()
}

func TestSweepScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewSweepScheduler(&countingEnqueuer{}, true, "30 3 * * *", logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_RunNow(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	s := NewSweepScheduler(enqueuer, true, "30 3 * * *", logger.Nop())

	s.RunNow()
	assert.Eventually(t, func() bool { return enqueuer.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_SkipsOverlappingRuns(t *testing.T) {
	enqueuer := &countingEnqueuer{block: make(chan struct{})}
	s := NewSweepScheduler(enqueuer, true, "30 3 * * *", logger.Nop())

	s.RunNow()
	require.Eventually(t, s.IsSweeping, time.Second, 10*time.Millisecond)

	s.runSweep()
	assert.Equal(t, int32(1), enqueuer.calls.Load())

	close(enqueuer.block)
	assert.Eventually(t, func() bool { return !s.IsSweeping() }, time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_EnqueueFailure(t *testing.T) {
	enqueuer := &countingEnqueuer{err: errors.New("queue closed")}
	s := NewSweepScheduler(enqueuer, true, "30 3 * * *", logger.Nop())

	s.runSweep()
	assert.Equal(t, int32(1), enqueuer.calls.Load())
	assert.False(t, s.IsSweeping())
}

func TestInlineSweep(t *testing.T) {
	id, err := InlineSweep{Sweeper: fakeSweeper{removed: 3}, Log: logger.Nop()}.EnqueueSweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = InlineSweep{Sweeper: fakeSweeper{err: errors.New("locked")}}.EnqueueSweep(context.Background())
	assert.EqualError(t, err, "locked")
}
