package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/schedule"
	"github.com/craftled/contentops/internal/schedule/repositoryimpl"
	"github.com/craftled/contentops/internal/workflowengine"
)

// fakeEngine records calls and can simulate an unreachable runtime.
type fakeEngine struct {
	connected   bool
	created     []workflowengine.ScheduleSpec
	paused      []string
	resumed     []string
	deleted     []string
	triggered   []string
	nextRunTime time.Time
	upcoming    []time.Time
}

func (f *fakeEngine) err() error {
	if !f.connected {
		return workflowengine.ErrNotConnected
	}
	return nil
}

func (f *fakeEngine) CreateSchedule(_ context.Context, spec workflowengine.ScheduleSpec) error {
	if err := f.err(); err != nil {
		return err
	}
	f.created = append(f.created, spec)
	return nil
}

func (f *fakeEngine) PauseSchedule(_ context.Context, websiteID, scheduleType string) error {
	if err := f.err(); err != nil {
		return err
	}
	f.paused = append(f.paused, websiteID+"/"+scheduleType)
	return nil
}

func (f *fakeEngine) ResumeSchedule(_ context.Context, websiteID, scheduleType string) error {
	if err := f.err(); err != nil {
		return err
	}
	f.resumed = append(f.resumed, websiteID+"/"+scheduleType)
	return nil
}

func (f *fakeEngine) UpdateSchedule(_ context.Context, spec workflowengine.ScheduleSpec) error {
	return f.err()
}

func (f *fakeEngine) DeleteSchedule(_ context.Context, websiteID, scheduleType string) error {
	if err := f.err(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, websiteID+"/"+scheduleType)
	return nil
}

func (f *fakeEngine) TriggerSchedule(_ context.Context, websiteID, scheduleType string) (string, error) {
	if err := f.err(); err != nil {
		return "", err
	}
	f.triggered = append(f.triggered, websiteID+"/"+scheduleType)
	return "wf-123", nil
}

func (f *fakeEngine) ListSchedulesForWebsite(_ context.Context, websiteID string) ([]workflowengine.ScheduleStatus, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	t := f.nextRunTime
	return []workflowengine.ScheduleStatus{
		{ScheduleType: "content_generation", IsPaused: true, NextRunTime: &t},
	}, nil
}

func (f *fakeEngine) GetScheduleInfo(_ context.Context, websiteID, scheduleType string) (*workflowengine.ScheduleStatus, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	t := f.nextRunTime
	return &workflowengine.ScheduleStatus{ScheduleType: scheduleType, NextRunTime: &t}, nil
}

func (f *fakeEngine) GetUpcomingRuns(_ context.Context, websiteID, scheduleType string, count int) ([]time.Time, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.upcoming, nil
}

func (f *fakeEngine) StartWorkflow(_ context.Context, name string, args map[string]any, workflowID string) error {
	return f.err()
}

func (f *fakeEngine) IsConnected() bool { return f.connected }

func newManager(engine workflowengine.Engine) (*schedule.Manager, *repositoryimpl.MemoryScheduleRepository, *repositoryimpl.MemoryExecutionRepository) {
	schedules := repositoryimpl.NewMemoryScheduleRepository()
	executions := repositoryimpl.NewMemoryExecutionRepository()
	return schedule.NewManager(schedules, executions, engine), schedules, executions
}

func TestCreateUpsertsByWebsiteAndType(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true}
	m, schedules, _ := newManager(engine)

	first, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	second, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 9 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	rows, err := schedules.ListByWebsite(ctx, "w-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, second.ID, "replace keeps the original id")
	assert.Equal(t, "0 9 * * *", rows[0].CronExpression)
}

func TestCreateRejectsBadCron(t *testing.T) {
	m, _, _ := newManager(&fakeEngine{connected: true})
	_, err := m.Create(context.Background(), schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentAudit,
		CronExpression: "not a cron",
	})
	assert.Error(t, err)
}

func TestCreateWithEngineDownStaysPending(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: false}
	m, schedules, _ := newManager(engine)

	created, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err, "engine unavailability must not fail the write")
	assert.Equal(t, schedule.SyncStatusPending, created.SyncStatus)

	engine.connected = true
	m.Reconcile(ctx)

	row, err := schedules.Get(ctx, "w-1", schedule.TypeContentGeneration)
	require.NoError(t, err)
	assert.Equal(t, schedule.SyncStatusSynced, row.SyncStatus)
	require.Len(t, engine.created, 1)
	assert.Equal(t, "0 6 * * *", engine.created[0].CronExpression)
}

func TestListFallsBackWhenEngineDown(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true, nextRunTime: time.Now().Add(time.Hour)}
	m, _, _ := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	views, err := m.List(ctx, "w-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Live)
	assert.True(t, views[0].IsPaused, "live engine status wins over the enabled flag")

	engine.connected = false
	views, err = m.List(ctx, "w-1")
	require.NoError(t, err, "reads must tolerate engine unavailability")
	require.Len(t, views, 1)
	assert.False(t, views[0].Live)
	assert.False(t, views[0].IsPaused, "fallback derives paused from the enabled flag")
}

func TestPauseWithEngineDownRecordsLocalIntent(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true}
	m, schedules, _ := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	engine.connected = false
	row, err := m.Pause(ctx, "w-1", schedule.TypeContentGeneration)
	require.NoError(t, err)
	assert.False(t, row.Enabled)
	assert.Equal(t, schedule.SyncStatusPending, row.SyncStatus)

	stored, err := schedules.Get(ctx, "w-1", schedule.TypeContentGeneration)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
}

func TestTriggerCreatesRunningManualExecution(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true}
	m, _, executions := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	exec, err := m.Trigger(ctx, "w-1", schedule.TypeContentGeneration, "user-7")
	require.NoError(t, err)
	assert.Equal(t, schedule.ExecutionStatusRunning, exec.Status)
	assert.Equal(t, schedule.TriggerTypeManual, exec.TriggerType)
	assert.Equal(t, "wf-123", exec.WorkflowID)
	assert.Equal(t, "user-7", exec.TriggeredBy)

	stored, err := executions.Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.StartedAt)
}

func TestUpdateExecutionTerminalBumpsLastRun(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true}
	m, schedules, _ := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)
	exec, err := m.Trigger(ctx, "w-1", schedule.TypeContentGeneration, "")
	require.NoError(t, err)

	updated, err := m.UpdateExecution(ctx, exec.ID, schedule.UpdateExecutionRequest{
		Status: schedule.ExecutionStatusCompleted,
		Result: map[string]any{"items": 3},
	})
	require.NoError(t, err)
	assert.NotNil(t, updated.CompletedAt)

	row, err := schedules.Get(ctx, "w-1", schedule.TypeContentGeneration)
	require.NoError(t, err)
	assert.NotNil(t, row.LastRunAt)

	_, err = m.UpdateExecution(ctx, exec.ID, schedule.UpdateExecutionRequest{
		Status: schedule.ExecutionStatusFailed,
	})
	assert.Error(t, err, "terminal executions reject further updates")
}

func TestExecutionStatisticsSuccessRate(t *testing.T) {
	ctx := context.Background()
	m, _, executions := newManager(&fakeEngine{connected: true})

	stats, err := m.ExecutionStatistics(ctx, schedule.ExecutionFilter{WebsiteID: "w-1"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.SuccessRate, "empty denominator guards to 0")

	now := time.Now()
	seed := []schedule.ExecutionStatus{
		schedule.ExecutionStatusCompleted,
		schedule.ExecutionStatusCompleted,
		schedule.ExecutionStatusCompleted,
		schedule.ExecutionStatusFailed,
		schedule.ExecutionStatusRunning,
		schedule.ExecutionStatusScheduled,
	}
	for i, status := range seed {
		require.NoError(t, executions.Create(ctx, &schedule.ScheduleExecution{
			ID:           string(rune('a' + i)),
			WebsiteID:    "w-1",
			ScheduleType: schedule.TypeContentGeneration,
			TriggerType:  schedule.TriggerTypeScheduled,
			Status:       status,
			StartedAt:    &now,
		}))
	}

	stats, err = m.ExecutionStatistics(ctx, schedule.ExecutionFilter{WebsiteID: "w-1"})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9, "running and scheduled excluded from the denominator")
}

func TestCalendarMergesHistoryAndUpcoming(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	engine := &fakeEngine{connected: true, upcoming: []time.Time{now.Add(24 * time.Hour)}}
	m, _, executions := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	past := now.Add(-24 * time.Hour)
	require.NoError(t, executions.Create(ctx, &schedule.ScheduleExecution{
		ID:           "e-1",
		WebsiteID:    "w-1",
		ScheduleType: schedule.TypeContentGeneration,
		TriggerType:  schedule.TriggerTypeScheduled,
		Status:       schedule.ExecutionStatusCompleted,
		StartedAt:    &past,
	}))

	entries, err := m.Calendar(ctx, "w-1", now.Add(-48*time.Hour), now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Upcoming)
	require.NotNil(t, entries[0].Execution)
	assert.Equal(t, "e-1", entries[0].Execution.ID)
	assert.True(t, entries[1].Upcoming)
}

func TestCalendarFallsBackToLocalCron(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{connected: true}
	m, _, _ := newManager(engine)

	_, err := m.Create(ctx, schedule.CreateScheduleRequest{
		WebsiteID:      "w-1",
		ScheduleType:   schedule.TypeContentGeneration,
		CronExpression: "0 6 * * *",
		Enabled:        true,
	})
	require.NoError(t, err)

	engine.connected = false
	now := time.Now()
	entries, err := m.Calendar(ctx, "w-1", now, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, entries, "local cron evaluation supplies upcoming runs")
	for _, e := range entries {
		assert.True(t, e.Upcoming)
		assert.Equal(t, 6, e.Time.Hour())
	}
}
