package editorial

import (
	"context"
	"time"

	"github.com/craftled/contentops/internal/transition"
)

// Filter narrows task queries. Zero values mean "no constraint".
type Filter struct {
	WebsiteID       string
	Statuses        []Status
	Priorities      []Priority
	AssignedAgentID string
	CurrentPhase    string
	Tags            []string
	Overdue         *bool
	HasBlockers     *bool
	Limit           int
}

// Matches reports whether t satisfies f. The memory repository filters with
// it; the Postgres repository compiles the same constraints to SQL.
func (f Filter) Matches(t *Task, now time.Time) bool {
	if f.WebsiteID != "" && t.WebsiteID != f.WebsiteID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if f.AssignedAgentID != "" && t.AssignedAgentID != f.AssignedAgentID {
		return false
	}
	if f.CurrentPhase != "" && t.CurrentPhase != f.CurrentPhase {
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(t.Tags, tag) {
			return false
		}
	}
	if f.Overdue != nil && t.Overdue(now) != *f.Overdue {
		return false
	}
	if f.HasBlockers != nil && t.HasBlockers() != *f.HasBlockers {
		return false
	}
	return true
}

func containsStatus(haystack []Status, needle Status) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []Priority, needle Priority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Task, error)
	ListByYAMLPath(ctx context.Context, path string) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error

	// SetState is the transition engine's write path; nothing else may touch
	// the status column.
	SetState(ctx context.Context, entityID string, to transition.State) error
}
