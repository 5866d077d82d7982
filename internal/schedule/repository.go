package schedule

import (
	"context"
	"time"
)

type ScheduleRepository interface {
	// Upsert inserts or replaces the row keyed by (website_id, schedule_type).
	// The stored row keeps the original id and created_at on replace.
	Upsert(ctx context.Context, s *WebsiteSchedule) error
	Get(ctx context.Context, websiteID string, scheduleType Type) (*WebsiteSchedule, error)
	ListByWebsite(ctx context.Context, websiteID string) ([]*WebsiteSchedule, error)
	Update(ctx context.Context, s *WebsiteSchedule) error
	Delete(ctx context.Context, websiteID string, scheduleType Type) error
	// ListPendingSync returns rows the reconciler still has to push to the
	// engine.
	ListPendingSync(ctx context.Context) ([]*WebsiteSchedule, error)
}

type ExecutionFilter struct {
	WebsiteID    string
	ScheduleType Type
	Statuses     []ExecutionStatus
	From         *time.Time
	To           *time.Time
	Limit        int
}

// Matches reports whether e satisfies the filter. The window applies to
// StartedAt, falling back to ScheduledAt for runs that never started.
func (f ExecutionFilter) Matches(e *ScheduleExecution) bool {
	if f.WebsiteID != "" && e.WebsiteID != f.WebsiteID {
		return false
	}
	if f.ScheduleType != "" && e.ScheduleType != f.ScheduleType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if e.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	at := e.StartedAt
	if at == nil {
		at = e.ScheduledAt
	}
	if f.From != nil && (at == nil || at.Before(*f.From)) {
		return false
	}
	if f.To != nil && (at == nil || at.After(*f.To)) {
		return false
	}
	return true
}

type ExecutionRepository interface {
	Create(ctx context.Context, e *ScheduleExecution) error
	Get(ctx context.Context, id string) (*ScheduleExecution, error)
	Update(ctx context.Context, e *ScheduleExecution) error
	// List returns matching executions newest first.
	List(ctx context.Context, filter ExecutionFilter) ([]*ScheduleExecution, error)
	// DeleteOlderThan prunes terminal executions whose completion precedes
	// cutoff and returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
