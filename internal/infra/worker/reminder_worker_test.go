package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/infra/cache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Execute(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type countingSweeper struct {
	runs atomic.Int32
}

func (s *countingSweeper) Execute(context.Context) (int, error) {
	s.runs.Add(1)
	return 1, nil
}

func TestReminderWorker_RunOnceSkipsWhenLeaseHeld(t *testing.T) {
	ctx := context.Background()
	locker := cache.NewLocalLocker()
	sweeper := new(MockSweeper)

	release, ok, err := locker.TryLock(ctx, reminderLeaseName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	w := NewReminderWorker(sweeper, locker, time.Hour, zap.NewNop())
	assert.False(t, w.RunOnce(ctx))
	sweeper.AssertNotCalled(t, "Execute", mock.Anything)

	require.NoError(t, release(ctx))
	sweeper.On("Execute", mock.Anything).Return(2, nil).Once()
	assert.True(t, w.RunOnce(ctx))
	sweeper.AssertExpectations(t)

	// The lease is given back after each sweep.
	_, ok, _ = locker.TryLock(ctx, reminderLeaseName, time.Minute)
	assert.True(t, ok)
}

func TestReminderWorker_SweepErrorIsLogged(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("Execute", mock.Anything).Return(0, errors.New("db down"))

	w := NewReminderWorker(sweeper, nil, time.Hour, nil)
	assert.True(t, w.RunOnce(context.Background()))
	sweeper.AssertExpectations(t)
}

type failingLocker struct{}

func (failingLocker) TryLock(context.Context, string, time.Duration) (cache.Release, bool, error) {
	return nil, false, errors.New("redis unreachable")
}

func TestReminderWorker_LockerErrorSkipsSweep(t *testing.T) {
	sweeper := new(MockSweeper)
	w := NewReminderWorker(sweeper, failingLocker{}, time.Hour, nil)
	assert.False(t, w.RunOnce(context.Background()))
	sweeper.AssertNotCalled(t, "Execute", mock.Anything)
}

func TestReminderWorker_StartRunsImmediatelyAndStops(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewReminderWorker(sweeper, nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
