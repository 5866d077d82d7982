package editorial

import (
	"context"
	"time"

	"github.com/craftled/contentops/pkg/cerr"
)

// Planner computes task readiness, statistics and dependency views over the
// task repository. It does not detect dependency cycles; cycles remain
// representable and are a product decision to resolve.
type Planner struct {
	repo Repository
}

func NewPlanner(repo Repository) *Planner {
	return &Planner{repo: repo}
}

func (p *Planner) FindWithFilters(ctx context.Context, f Filter) ([]*Task, error) {
	return p.repo.List(ctx, f)
}

// SelectForGeneration returns the backlog/ready tasks a generation run may
// pick up, bounded by limit and optionally pinned to one priority.
func (p *Planner) SelectForGeneration(ctx context.Context, websiteID string, limit int, priority Priority) ([]*Task, error) {
	f := Filter{
		WebsiteID: websiteID,
		Statuses:  []Status{StatusBacklog, StatusReady},
		Limit:     limit,
	}
	if priority != "" {
		f.Priorities = []Priority{priority}
	}
	return p.repo.List(ctx, f)
}

type Statistics struct {
	Total              int              `json:"total"`
	ByStatus           map[Status]int   `json:"by_status"`
	ByPriority         map[Priority]int `json:"by_priority"`
	ByType             map[TaskType]int `json:"by_type"`
	OverdueCount       int              `json:"overdue_count"`
	BlockedCount       int              `json:"blocked_count"`
	AvgCompletionHours float64          `json:"avg_completion_hours"`
}

func (p *Planner) Statistics(ctx context.Context, websiteID string) (*Statistics, error) {
	tasks, err := p.repo.List(ctx, Filter{WebsiteID: websiteID})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stats := &Statistics{
		Total:      len(tasks),
		ByStatus:   map[Status]int{},
		ByPriority: map[Priority]int{},
		ByType:     map[TaskType]int{},
	}
	var hoursSum float64
	var hoursCount int
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		stats.ByType[t.Type]++
		if t.Overdue(now) {
			stats.OverdueCount++
		}
		if t.Status == StatusBlocked {
			stats.BlockedCount++
		}
		if t.Status == StatusCompleted && t.ActualHours != nil {
			hoursSum += *t.ActualHours
			hoursCount++
		}
	}
	if hoursCount > 0 {
		stats.AvgCompletionHours = hoursSum / float64(hoursCount)
	}
	return stats, nil
}

type DependencyView struct {
	Task      *Task   `json:"task"`
	DependsOn []*Task `json:"depends_on"`
	Blocks    []*Task `json:"blocks"`
}

// WithDependencies resolves the id lists of a task into full task objects so
// callers can inspect readiness.
func (p *Planner) WithDependencies(ctx context.Context, taskID string) (*DependencyView, error) {
	t, err := p.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	dependsOn, err := p.repo.ListByIDs(ctx, t.DependsOn)
	if err != nil {
		return nil, err
	}
	blocks, err := p.repo.ListByIDs(ctx, t.Blocks)
	if err != nil {
		return nil, err
	}
	return &DependencyView{Task: t, DependsOn: dependsOn, Blocks: blocks}, nil
}

// Ready reports whether every dependency of the task is completed.
func (p *Planner) Ready(ctx context.Context, taskID string) (bool, error) {
	view, err := p.WithDependencies(ctx, taskID)
	if err != nil {
		return false, err
	}
	if len(view.Task.DependsOn) > 0 && len(view.DependsOn) < len(view.Task.DependsOn) {
		return false, cerr.NewError(cerr.FailedPrecondition, "task references missing dependencies", nil)
	}
	for _, dep := range view.DependsOn {
		if dep.Status != StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}
