package schedule

import "time"

// SyncStatus tracks whether the local row has been pushed to the workflow
// engine. Rows stay pending while the engine is unreachable; the reconciler
// retries them until synced.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
)

// Type identifies what a recurring schedule does.
type Type string

const (
	TypeContentGeneration Type = "content_generation"
	TypeContentAudit      Type = "content_audit"
	TypeSitemapRefresh    Type = "sitemap_refresh"
)

// DefaultSpecs are the schedules provisioned for every new website.
var DefaultSpecs = []struct {
	Type           Type
	Frequency      string
	CronExpression string
}{
	{TypeContentGeneration, "daily", "0 6 * * *"},
	{TypeContentAudit, "weekly", "0 4 * * 1"},
	{TypeSitemapRefresh, "daily", "30 5 * * *"},
}

// WebsiteSchedule is the durable record of scheduling intent, one row per
// (website, type). The engine mirrors it; the local row wins on divergence.
type WebsiteSchedule struct {
	ID               string     `json:"id"`
	WebsiteID        string     `json:"website_id"`
	ScheduleType     Type       `json:"schedule_type"`
	Frequency        string     `json:"frequency,omitempty"`
	CronExpression   string     `json:"cron_expression"`
	Enabled          bool       `json:"enabled"`
	EngineScheduleID string     `json:"engine_schedule_id,omitempty"`
	SyncStatus       SyncStatus `json:"sync_status"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ScheduleView is a schedule merged with the engine's live status. Live is
// false when the engine was unreachable and the persisted fields were used.
type ScheduleView struct {
	WebsiteSchedule
	IsPaused    bool       `json:"is_paused"`
	NextRunTime *time.Time `json:"next_run_time,omitempty"`
	Live        bool       `json:"live"`
}

// ExecutionStatus is the lifecycle of one run attempt.
type ExecutionStatus string

const (
	ExecutionStatusScheduled ExecutionStatus = "scheduled"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// TriggerType records which side initiated a run.
type TriggerType string

const (
	TriggerTypeScheduled TriggerType = "scheduled"
	TriggerTypeManual    TriggerType = "manual"
)

// ScheduleExecution is one run attempt, created when a run starts and
// mutated as the engine reports progress.
type ScheduleExecution struct {
	ID           string          `json:"id"`
	WebsiteID    string          `json:"website_id"`
	ScheduleID   string          `json:"schedule_id,omitempty"`
	ScheduleType Type            `json:"schedule_type"`
	WorkflowType string          `json:"workflow_type,omitempty"`
	WorkflowID   string          `json:"workflow_id,omitempty"`
	TriggerType  TriggerType     `json:"trigger_type"`
	Status       ExecutionStatus `json:"status"`
	ScheduledAt  *time.Time      `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	TriggeredBy  string          `json:"triggered_by,omitempty"`
	Result       map[string]any  `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// CalendarEntry is one row of the merged calendar view: either a persisted
// historical execution or an engine-computed upcoming fire time.
type CalendarEntry struct {
	ScheduleType Type               `json:"schedule_type"`
	Time         time.Time          `json:"time"`
	Upcoming     bool               `json:"upcoming"`
	Execution    *ScheduleExecution `json:"execution,omitempty"`
}

// Statistics aggregates executions over an optional date window.
type Statistics struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByTriggerType  map[string]int `json:"by_trigger_type"`
	ByScheduleType map[string]int `json:"by_schedule_type"`
	SuccessRate    float64        `json:"success_rate"`
}
