package editorial

import (
	"fmt"
	"sort"
	"time"
)

type TaskType string

const (
	TaskTypeArticle  TaskType = "article"
	TaskTypePage     TaskType = "page"
	TaskTypeUpdate   TaskType = "update"
	TaskTypeFix      TaskType = "fix"
	TaskTypeOptimize TaskType = "optimize"
	TaskTypeResearch TaskType = "research"
)

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for sorting; unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type SEOMeta struct {
	TargetQuery     string   `json:"target_query,omitempty" yaml:"target_query,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty" yaml:"meta_description,omitempty"`
}

type Task struct {
	ID              string         `json:"id"`
	WebsiteID       string         `json:"website_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Type            TaskType       `json:"task_type"`
	Status          Status         `json:"status"`
	Priority        Priority       `json:"priority"`
	AssignedAgentID string         `json:"assigned_agent_id,omitempty"`
	AssignedUserID  string         `json:"assigned_user_id,omitempty"`
	DependsOn       []string       `json:"depends_on,omitempty"`
	Blocks          []string       `json:"blocks,omitempty"`
	SitemapTargets  []string       `json:"sitemap_targets,omitempty"`
	SEO             SEOMeta        `json:"seo"`
	WordCountTarget int            `json:"word_count_target,omitempty"`
	CurrentPhase    string         `json:"current_phase,omitempty"`
	PhasesCompleted []string       `json:"phases_completed,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	DueDate         *time.Time     `json:"due_date,omitempty"`
	ActualHours     *float64       `json:"actual_hours,omitempty"`
	YAMLFilePath    string         `json:"yaml_file_path,omitempty"`
	YAMLFileHash    string         `json:"yaml_file_hash,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate rejects the invariants the data model enforces at write time.
// Sitemap targets and dependency cycles are deliberately not checked here.
func (t *Task) Validate() error {
	if t.WebsiteID == "" {
		return fmt.Errorf("website_id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	for _, dep := range t.DependsOn {
		if dep == t.ID {
			return fmt.Errorf("task cannot depend on itself")
		}
	}
	return nil
}

func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) &&
		t.Status != StatusCompleted && t.Status != StatusCancelled
}

func (t *Task) HasBlockers() bool {
	return len(t.DependsOn) > 0
}

// Sort orders tasks by priority desc, due date asc with nulls last, then
// created_at desc. The Postgres repository mirrors this ordering in SQL.
func Sort(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
