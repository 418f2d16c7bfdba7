package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EliuX/cloud-tools/pkg/models"
)

// recordingExecutor counts executions and signals each one.
type recordingExecutor struct {
	mu       sync.Mutex
	executed []string
	err      error
	fired    chan struct{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{fired: make(chan struct{}, 16)}
}

func (e *recordingExecutor) Execute(ctx context.Context, schedule *Schedule) error {
	e.mu.Lock()
	e.executed = append(e.executed, schedule.ID)
	e.mu.Unlock()
	e.fired <- struct{}{}
	return e.err
}

func (e *recordingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

func testSchedule(id string) *Schedule {
	return &Schedule{
		ID:       id,
		Name:     "nightly " + id,
		CronExpr: "0 3 * * *",
		Enabled:  true,
		Request:  models.MigrationRequest{Resources: []string{"containers"}},
	}
}

func TestAddValidatesCronExpression(t *testing.T) {
	s := New(newRecordingExecutor())

	err := s.Add(&Schedule{ID: "bad", CronExpr: "not a cron"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")

	_, err = s.Get("bad")
	assert.Error(t, err, "nothing is stored on validation failure")
}

func TestAddSetsTimestampsAndNextRun(t *testing.T) {
	s := New(newRecordingExecutor())
	schedule := testSchedule("s1")

	require.NoError(t, s.Add(schedule))

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.NextRun.After(time.Now()))
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := New(newRecordingExecutor())
	require.NoError(t, s.Add(testSchedule("s1")))

	err := s.Add(testSchedule("s1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUpdatePreservesCounters(t *testing.T) {
	s := New(newRecordingExecutor())
	original := testSchedule("s1")
	require.NoError(t, s.Add(original))

	s.mu.Lock()
	s.schedules["s1"].RunCount = 5
	s.schedules["s1"].FailCount = 2
	s.mu.Unlock()

	updated := testSchedule("s1")
	updated.CronExpr = "30 2 * * *"
	require.NoError(t, s.Update(updated))

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "30 2 * * *", got.CronExpr)
	assert.Equal(t, 5, got.RunCount)
	assert.Equal(t, 2, got.FailCount)
	assert.Equal(t, original.CreatedAt, got.CreatedAt)
}

func TestUpdateMissingSchedule(t *testing.T) {
	s := New(newRecordingExecutor())
	err := s.Update(testSchedule("ghost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRemove(t *testing.T) {
	s := New(newRecordingExecutor())
	require.NoError(t, s.Add(testSchedule("s1")))

	require.NoError(t, s.Remove("s1"))
	_, err := s.Get("s1")
	assert.Error(t, err)

	assert.Error(t, s.Remove("s1"))
}

func TestEnableDisable(t *testing.T) {
	s := New(newRecordingExecutor())
	schedule := testSchedule("s1")
	schedule.Enabled = false
	require.NoError(t, s.Add(schedule))

	require.NoError(t, s.Enable("s1"))
	got, _ := s.Get("s1")
	assert.True(t, got.Enabled)

	// Enabling twice is a no-op.
	require.NoError(t, s.Enable("s1"))

	require.NoError(t, s.Disable("s1"))
	got, _ = s.Get("s1")
	assert.False(t, got.Enabled)
	require.NoError(t, s.Disable("s1"))
}

func TestRunNowExecutesImmediately(t *testing.T) {
	exec := newRecordingExecutor()
	s := New(exec)
	require.NoError(t, s.Add(testSchedule("s1")))

	require.NoError(t, s.RunNow("s1"))

	select {
	case <-exec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not fire")
	}

	got, _ := s.Get("s1")
	assert.Equal(t, 1, got.RunCount)
	assert.False(t, got.LastRun.IsZero())
}

func TestRunNowMissingSchedule(t *testing.T) {
	s := New(newRecordingExecutor())
	assert.Error(t, s.RunNow("ghost"))
}

func TestExecuteFailureIncrementsFailCount(t *testing.T) {
	exec := newRecordingExecutor()
	exec.err = errors.New("migration failed")
	s := New(exec)
	require.NoError(t, s.Add(testSchedule("s1")))

	require.NoError(t, s.RunNow("s1"))
	select {
	case <-exec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not fire")
	}

	// execute updates counters after the executor returns.
	assert.Eventually(t, func() bool {
		got, err := s.Get("s1")
		return err == nil && got.FailCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	s := New(newRecordingExecutor())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "double start is rejected")

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop(), "double stop is rejected")
}

func TestStats(t *testing.T) {
	s := New(newRecordingExecutor())

	enabled := testSchedule("on")
	disabled := testSchedule("off")
	disabled.Enabled = false
	require.NoError(t, s.Add(enabled))
	require.NoError(t, s.Add(disabled))

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalSchedules)
	assert.Equal(t, 1, stats.ActiveSchedules)
	assert.Equal(t, 1, stats.DisabledSchedules)
	assert.False(t, stats.NextRun.IsZero())
}
