package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"

	"github.com/craftled/contentops/internal/workflowengine"
	"github.com/craftled/contentops/pkg/cerr"
)

// Manager keeps website schedules in sync with the workflow engine and
// records every execution attempt. Local rows are the durable record of
// intent; engine writes are retried by the reconciler until they land.
type Manager struct {
	schedules  ScheduleRepository
	executions ExecutionRepository
	engine     workflowengine.Engine
	cronParser cron.Parser
}

func NewManager(schedules ScheduleRepository, executions ExecutionRepository, engine workflowengine.Engine) *Manager {
	return &Manager{
		schedules:  schedules,
		executions: executions,
		engine:     engine,
		cronParser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

type CreateScheduleRequest struct {
	WebsiteID      string
	ScheduleType   Type
	Frequency      string
	CronExpression string
	Enabled        bool
}

// Create writes the local row first with sync_status pending, then tries to
// push it to the engine. An unreachable engine is not an error; the
// reconciler retries until the row is synced.
func (m *Manager) Create(ctx context.Context, req CreateScheduleRequest) (*WebsiteSchedule, error) {
	if req.WebsiteID == "" || req.ScheduleType == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "website_id and schedule_type are required", nil)
	}
	if _, err := m.cronParser.Parse(req.CronExpression); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid cron expression %q", req.CronExpression), err)
	}
	now := time.Now()
	s := &WebsiteSchedule{
		ID:             ulid.Make().String(),
		WebsiteID:      req.WebsiteID,
		ScheduleType:   req.ScheduleType,
		Frequency:      req.Frequency,
		CronExpression: req.CronExpression,
		Enabled:        req.Enabled,
		SyncStatus:     SyncStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.schedules.Upsert(ctx, s); err != nil {
		return nil, err
	}
	m.trySync(ctx, s)
	return s, nil
}

// CreateDefaults provisions the standard schedule set for a website. Already
// existing rows are replaced, which makes the call idempotent.
func (m *Manager) CreateDefaults(ctx context.Context, websiteID string) ([]*WebsiteSchedule, error) {
	out := make([]*WebsiteSchedule, 0, len(DefaultSpecs))
	for _, spec := range DefaultSpecs {
		s, err := m.Create(ctx, CreateScheduleRequest{
			WebsiteID:      websiteID,
			ScheduleType:   spec.Type,
			Frequency:      spec.Frequency,
			CronExpression: spec.CronExpression,
			Enabled:        true,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// trySync pushes one pending row to the engine and marks it synced on
// success. Failures are logged and left for the reconciler.
func (m *Manager) trySync(ctx context.Context, s *WebsiteSchedule) {
	if s.SyncStatus == SyncStatusSynced {
		return
	}
	err := m.engine.CreateSchedule(ctx, workflowengine.ScheduleSpec{
		WebsiteID:      s.WebsiteID,
		ScheduleType:   string(s.ScheduleType),
		CronExpression: s.CronExpression,
	})
	if err != nil {
		slog.WarnContext(ctx, "schedule not pushed to engine, left pending",
			"website_id", s.WebsiteID, "schedule_type", s.ScheduleType, "error", err)
		return
	}
	if !s.Enabled {
		if err := m.engine.PauseSchedule(ctx, s.WebsiteID, string(s.ScheduleType)); err != nil {
			slog.WarnContext(ctx, "schedule created but pause not applied",
				"website_id", s.WebsiteID, "schedule_type", s.ScheduleType, "error", err)
			return
		}
	}
	s.SyncStatus = SyncStatusSynced
	s.UpdatedAt = time.Now()
	if err := m.schedules.Update(ctx, s); err != nil {
		slog.WarnContext(ctx, "failed to persist sync status",
			"website_id", s.WebsiteID, "schedule_type", s.ScheduleType, "error", err)
	}
}

// List merges persisted rows with the engine's live view. When the engine is
// unreachable every view falls back to the persisted enabled flag and
// next_run_at, and the request still succeeds.
func (m *Manager) List(ctx context.Context, websiteID string) ([]*ScheduleView, error) {
	rows, err := m.schedules.ListByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	live := map[string]workflowengine.ScheduleStatus{}
	if statuses, err := m.engine.ListSchedulesForWebsite(ctx, websiteID); err == nil {
		for _, st := range statuses {
			live[st.ScheduleType] = st
		}
	} else {
		slog.DebugContext(ctx, "engine unavailable, serving persisted schedule state",
			"website_id", websiteID, "error", err)
	}
	out := make([]*ScheduleView, len(rows))
	for i, row := range rows {
		view := &ScheduleView{WebsiteSchedule: *row, IsPaused: !row.Enabled, NextRunTime: row.NextRunAt}
		if st, ok := live[string(row.ScheduleType)]; ok {
			view.IsPaused = st.IsPaused
			view.NextRunTime = st.NextRunTime
			view.Live = true
		}
		out[i] = view
	}
	return out, nil
}

func (m *Manager) Get(ctx context.Context, websiteID string, scheduleType Type) (*ScheduleView, error) {
	row, err := m.schedules.Get(ctx, websiteID, scheduleType)
	if err != nil {
		return nil, err
	}
	view := &ScheduleView{WebsiteSchedule: *row, IsPaused: !row.Enabled, NextRunTime: row.NextRunAt}
	if st, err := m.engine.GetScheduleInfo(ctx, websiteID, string(scheduleType)); err == nil {
		view.IsPaused = st.IsPaused
		view.NextRunTime = st.NextRunTime
		view.Live = true
	}
	return view, nil
}

// Pause applies the engine-side pause best-effort, then unconditionally
// disables the local row. An engine failure marks the row pending so the
// reconciler converges it later.
func (m *Manager) Pause(ctx context.Context, websiteID string, scheduleType Type) (*WebsiteSchedule, error) {
	return m.setEnabled(ctx, websiteID, scheduleType, false)
}

func (m *Manager) Resume(ctx context.Context, websiteID string, scheduleType Type) (*WebsiteSchedule, error) {
	return m.setEnabled(ctx, websiteID, scheduleType, true)
}

func (m *Manager) setEnabled(ctx context.Context, websiteID string, scheduleType Type, enabled bool) (*WebsiteSchedule, error) {
	row, err := m.schedules.Get(ctx, websiteID, scheduleType)
	if err != nil {
		return nil, err
	}
	var engineErr error
	if enabled {
		engineErr = m.engine.ResumeSchedule(ctx, websiteID, string(scheduleType))
	} else {
		engineErr = m.engine.PauseSchedule(ctx, websiteID, string(scheduleType))
	}
	row.Enabled = enabled
	row.UpdatedAt = time.Now()
	if engineErr != nil {
		slog.WarnContext(ctx, "engine pause/resume failed, local state recorded",
			"website_id", websiteID, "schedule_type", scheduleType, "error", engineErr)
		row.SyncStatus = SyncStatusPending
	}
	if err := m.schedules.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

type UpdateScheduleRequest struct {
	Frequency      *string
	CronExpression *string
	Enabled        *bool
}

func (m *Manager) Update(ctx context.Context, websiteID string, scheduleType Type, req UpdateScheduleRequest) (*WebsiteSchedule, error) {
	row, err := m.schedules.Get(ctx, websiteID, scheduleType)
	if err != nil {
		return nil, err
	}
	if req.CronExpression != nil {
		if _, err := m.cronParser.Parse(*req.CronExpression); err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid cron expression %q", *req.CronExpression), err)
		}
		row.CronExpression = *req.CronExpression
	}
	if req.Frequency != nil {
		row.Frequency = *req.Frequency
	}
	if req.Enabled != nil {
		row.Enabled = *req.Enabled
	}
	row.UpdatedAt = time.Now()
	if err := m.engine.UpdateSchedule(ctx, workflowengine.ScheduleSpec{
		WebsiteID:      websiteID,
		ScheduleType:   string(scheduleType),
		CronExpression: row.CronExpression,
	}); err != nil {
		slog.WarnContext(ctx, "engine update failed, local state recorded",
			"website_id", websiteID, "schedule_type", scheduleType, "error", err)
		row.SyncStatus = SyncStatusPending
	}
	if err := m.schedules.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes the engine schedule best-effort, then the local row
// unconditionally.
func (m *Manager) Delete(ctx context.Context, websiteID string, scheduleType Type) error {
	if err := m.engine.DeleteSchedule(ctx, websiteID, string(scheduleType)); err != nil {
		slog.WarnContext(ctx, "engine delete failed, removing local row anyway",
			"website_id", websiteID, "schedule_type", scheduleType, "error", err)
	}
	return m.schedules.Delete(ctx, websiteID, scheduleType)
}

// Trigger starts a run immediately. The created execution row is the durable
// link between the manual trigger and its eventual outcome; the engine
// reports completion out of band through UpdateExecution.
func (m *Manager) Trigger(ctx context.Context, websiteID string, scheduleType Type, triggeredBy string) (*ScheduleExecution, error) {
	row, err := m.schedules.Get(ctx, websiteID, scheduleType)
	if err != nil {
		return nil, err
	}
	workflowID, err := m.engine.TriggerSchedule(ctx, websiteID, string(scheduleType))
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "workflow engine rejected the trigger", err)
	}
	now := time.Now()
	exec := &ScheduleExecution{
		ID:           ulid.Make().String(),
		WebsiteID:    websiteID,
		ScheduleID:   row.ID,
		ScheduleType: scheduleType,
		WorkflowID:   workflowID,
		TriggerType:  TriggerTypeManual,
		Status:       ExecutionStatusRunning,
		StartedAt:    &now,
		TriggeredBy:  triggeredBy,
	}
	if err := m.executions.Create(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

type UpdateExecutionRequest struct {
	Status ExecutionStatus
	Result map[string]any
	Error  string
}

// UpdateExecution applies an out-of-band status report from the engine. A
// terminal status stamps completed_at and bumps the schedule's last_run_at.
func (m *Manager) UpdateExecution(ctx context.Context, executionID string, req UpdateExecutionRequest) (*ScheduleExecution, error) {
	exec, err := m.executions.Get(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status.Terminal() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "execution already finished", nil)
	}
	exec.Status = req.Status
	if req.Result != nil {
		exec.Result = req.Result
	}
	if req.Error != "" {
		exec.Error = req.Error
	}
	now := time.Now()
	if req.Status.Terminal() {
		exec.CompletedAt = &now
	}
	if err := m.executions.Update(ctx, exec); err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		if row, err := m.schedules.Get(ctx, exec.WebsiteID, exec.ScheduleType); err == nil {
			row.LastRunAt = &now
			row.UpdatedAt = now
			if err := m.schedules.Update(ctx, row); err != nil {
				slog.WarnContext(ctx, "failed to bump last_run_at",
					"website_id", exec.WebsiteID, "schedule_type", exec.ScheduleType, "error", err)
			}
		}
	}
	return exec, nil
}

func (m *Manager) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*ScheduleExecution, error) {
	return m.executions.List(ctx, filter)
}

// Calendar merges persisted executions in [from, to] with upcoming fire
// times. Future runs come from the engine when it is reachable, otherwise
// from local cron evaluation of each enabled schedule.
func (m *Manager) Calendar(ctx context.Context, websiteID string, from, to time.Time) ([]CalendarEntry, error) {
	executions, err := m.executions.List(ctx, ExecutionFilter{WebsiteID: websiteID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	var entries []CalendarEntry
	for _, exec := range executions {
		at := exec.StartedAt
		if at == nil {
			at = exec.ScheduledAt
		}
		if at == nil {
			continue
		}
		entries = append(entries, CalendarEntry{
			ScheduleType: exec.ScheduleType,
			Time:         *at,
			Execution:    exec,
		})
	}
	rows, err := m.schedules.ListByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, row := range rows {
		if !row.Enabled {
			continue
		}
		for _, t := range m.upcomingRuns(ctx, row, now, to) {
			if t.Before(from) || t.After(to) {
				continue
			}
			entries = append(entries, CalendarEntry{ScheduleType: row.ScheduleType, Time: t, Upcoming: true})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	return entries, nil
}

const maxUpcomingRuns = 64

func (m *Manager) upcomingRuns(ctx context.Context, row *WebsiteSchedule, from, to time.Time) []time.Time {
	if runs, err := m.engine.GetUpcomingRuns(ctx, row.WebsiteID, string(row.ScheduleType), maxUpcomingRuns); err == nil {
		return runs
	}
	sched, err := m.cronParser.Parse(row.CronExpression)
	if err != nil {
		slog.WarnContext(ctx, "stored cron expression does not parse",
			"website_id", row.WebsiteID, "schedule_type", row.ScheduleType, "error", err)
		return nil
	}
	var out []time.Time
	next := from
	for len(out) < maxUpcomingRuns {
		next = sched.Next(next)
		if next.IsZero() || next.After(to) {
			break
		}
		out = append(out, next)
	}
	return out
}

// ExecutionStatistics aggregates executions by status, trigger type, and
// schedule type. success_rate is completed/(completed+failed) and 0 when the
// denominator is empty; running and scheduled rows never count against it.
func (m *Manager) ExecutionStatistics(ctx context.Context, filter ExecutionFilter) (*Statistics, error) {
	executions, err := m.executions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{
		Total:          len(executions),
		ByStatus:       map[string]int{},
		ByTriggerType:  map[string]int{},
		ByScheduleType: map[string]int{},
	}
	for _, exec := range executions {
		stats.ByStatus[string(exec.Status)]++
		stats.ByTriggerType[string(exec.TriggerType)]++
		stats.ByScheduleType[string(exec.ScheduleType)]++
	}
	completed := stats.ByStatus[string(ExecutionStatusCompleted)]
	failed := stats.ByStatus[string(ExecutionStatusFailed)]
	if completed+failed > 0 {
		stats.SuccessRate = float64(completed) / float64(completed+failed)
	}
	return stats, nil
}

// Reconcile pushes every pending row to the engine. Called periodically by
// RunReconciler and safe to call concurrently with normal operation.
func (m *Manager) Reconcile(ctx context.Context) {
	if !m.engine.IsConnected() {
		return
	}
	rows, err := m.schedules.ListPendingSync(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to list pending schedules", "error", err)
		return
	}
	for _, row := range rows {
		m.trySync(ctx, row)
	}
}

// RunReconciler loops until ctx is cancelled.
func (m *Manager) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reconcile(ctx)
		}
	}
}

// RunRetention prunes terminal executions older than retention once a day.
func (m *Manager) RunRetention(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.executions.DeleteOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				slog.WarnContext(ctx, "execution retention pass failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "pruned old schedule executions", "count", n)
			}
		}
	}
}
