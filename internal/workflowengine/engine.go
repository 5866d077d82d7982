package workflowengine

import (
	"context"
	"time"

	"github.com/craftled/contentops/pkg/cerr"
)

// ErrNotConnected marks engine calls made while no workflow runtime is
// reachable. Callers on read paths fall back to persisted state instead of
// failing the request.
var ErrNotConnected = cerr.NewError(cerr.Unavailable, "workflow engine not connected", nil)

// ScheduleSpec is the definition handed to the engine when a schedule is
// created or updated.
type ScheduleSpec struct {
	WebsiteID      string
	ScheduleType   string
	CronExpression string
}

// ScheduleStatus is the engine's live view of one schedule.
type ScheduleStatus struct {
	ScheduleType  string
	IsPaused      bool
	NextRunTime   *time.Time
	RecentActions []ScheduleAction
}

// ScheduleAction is one recent fire recorded by the engine.
type ScheduleAction struct {
	WorkflowID string
	StartedAt  time.Time
}

// Engine is the durable workflow runtime the schedule manager and the
// generation orchestrator run against. Implementations wrap a concrete
// runtime client; Disconnected stands in when none is configured.
type Engine interface {
	CreateSchedule(ctx context.Context, spec ScheduleSpec) error
	PauseSchedule(ctx context.Context, websiteID, scheduleType string) error
	ResumeSchedule(ctx context.Context, websiteID, scheduleType string) error
	UpdateSchedule(ctx context.Context, spec ScheduleSpec) error
	DeleteSchedule(ctx context.Context, websiteID, scheduleType string) error
	// TriggerSchedule starts a run immediately and returns the workflow id.
	TriggerSchedule(ctx context.Context, websiteID, scheduleType string) (string, error)
	ListSchedulesForWebsite(ctx context.Context, websiteID string) ([]ScheduleStatus, error)
	GetScheduleInfo(ctx context.Context, websiteID, scheduleType string) (*ScheduleStatus, error)
	GetUpcomingRuns(ctx context.Context, websiteID, scheduleType string, count int) ([]time.Time, error)
	// StartWorkflow launches a one-off workflow with a caller-chosen id.
	StartWorkflow(ctx context.Context, name string, args map[string]any, workflowID string) error
	IsConnected() bool
}

// Disconnected is the null engine. Every call fails with ErrNotConnected and
// IsConnected reports false, which routes callers onto their local fallbacks.
type Disconnected struct{}

func NewDisconnected() *Disconnected { return &Disconnected{} }

func (*Disconnected) CreateSchedule(context.Context, ScheduleSpec) error { return ErrNotConnected }

func (*Disconnected) PauseSchedule(context.Context, string, string) error { return ErrNotConnected }

func (*Disconnected) ResumeSchedule(context.Context, string, string) error { return ErrNotConnected }

func (*Disconnected) UpdateSchedule(context.Context, ScheduleSpec) error { return ErrNotConnected }

func (*Disconnected) DeleteSchedule(context.Context, string, string) error { return ErrNotConnected }

func (*Disconnected) TriggerSchedule(context.Context, string, string) (string, error) {
	return "", ErrNotConnected
}

func (*Disconnected) ListSchedulesForWebsite(context.Context, string) ([]ScheduleStatus, error) {
	return nil, ErrNotConnected
}

func (*Disconnected) GetScheduleInfo(context.Context, string, string) (*ScheduleStatus, error) {
	return nil, ErrNotConnected
}

func (*Disconnected) GetUpcomingRuns(context.Context, string, string, int) ([]time.Time, error) {
	return nil, ErrNotConnected
}

func (*Disconnected) StartWorkflow(context.Context, string, map[string]any, string) error {
	return ErrNotConnected
}

func (*Disconnected) IsConnected() bool { return false }
