package editorial_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/editorial/repositoryimpl"
)

func seedTask(t *testing.T, repo editorial.Repository, task *editorial.Task) {
	t.Helper()
	if task.Priority == "" {
		task.Priority = editorial.PriorityMedium
	}
	if task.Type == "" {
		task.Type = editorial.TaskTypeArticle
	}
	if task.WebsiteID == "" {
		task.WebsiteID = "site-1"
	}
	if task.Title == "" {
		task.Title = task.ID
	}
	require.NoError(t, repo.Create(context.Background(), task))
}

func TestFindWithFiltersStatusAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	planner := editorial.NewPlanner(repo)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	due := base.AddDate(0, 0, 7)
	earlier := base.AddDate(0, 0, 3)

	seedTask(t, repo, &editorial.Task{ID: "t-backlog-low", Status: editorial.StatusBacklog,
		Priority: editorial.PriorityLow, CreatedAt: base})
	seedTask(t, repo, &editorial.Task{ID: "t-ready-urgent", Status: editorial.StatusReady,
		Priority: editorial.PriorityUrgent, CreatedAt: base})
	seedTask(t, repo, &editorial.Task{ID: "t-ready-high-due", Status: editorial.StatusReady,
		Priority: editorial.PriorityHigh, DueDate: &due, CreatedAt: base})
	seedTask(t, repo, &editorial.Task{ID: "t-backlog-high-early", Status: editorial.StatusBacklog,
		Priority: editorial.PriorityHigh, DueDate: &earlier, CreatedAt: base})
	seedTask(t, repo, &editorial.Task{ID: "t-backlog-high-nodue", Status: editorial.StatusBacklog,
		Priority: editorial.PriorityHigh, CreatedAt: base.Add(time.Hour)})
	seedTask(t, repo, &editorial.Task{ID: "t-done", Status: editorial.StatusCompleted,
		Priority: editorial.PriorityUrgent, CreatedAt: base})
	seedTask(t, repo, &editorial.Task{ID: "t-progress", Status: editorial.StatusInProgress,
		Priority: editorial.PriorityUrgent, CreatedAt: base})

	tasks, err := planner.FindWithFilters(ctx, editorial.Filter{
		WebsiteID: "site-1",
		Statuses:  []editorial.Status{editorial.StatusBacklog, editorial.StatusReady},
	})
	require.NoError(t, err)

	for _, task := range tasks {
		assert.Contains(t, []editorial.Status{editorial.StatusBacklog, editorial.StatusReady}, task.Status)
	}

	// priority desc, due date asc with nulls last, created_at desc.
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{
		"t-ready-urgent",
		"t-backlog-high-early",
		"t-ready-high-due",
		"t-backlog-high-nodue",
		"t-backlog-low",
	}, ids)
}

func TestFindWithFiltersTagsAndBlockers(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	planner := editorial.NewPlanner(repo)

	seedTask(t, repo, &editorial.Task{ID: "tagged", Status: editorial.StatusReady,
		Tags: []string{"seo", "launch"}})
	seedTask(t, repo, &editorial.Task{ID: "blocked", Status: editorial.StatusReady,
		DependsOn: []string{"tagged"}})

	tasks, err := planner.FindWithFilters(ctx, editorial.Filter{Tags: []string{"seo"}})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "tagged", tasks[0].ID)

	hasBlockers := true
	tasks, err = planner.FindWithFilters(ctx, editorial.Filter{HasBlockers: &hasBlockers})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "blocked", tasks[0].ID)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	planner := editorial.NewPlanner(repo)

	past := time.Now().Add(-24 * time.Hour)
	hours4 := 4.0
	hours8 := 8.0

	seedTask(t, repo, &editorial.Task{ID: "a", Status: editorial.StatusCompleted, ActualHours: &hours4})
	seedTask(t, repo, &editorial.Task{ID: "b", Status: editorial.StatusCompleted, ActualHours: &hours8})
	seedTask(t, repo, &editorial.Task{ID: "c", Status: editorial.StatusCompleted})
	seedTask(t, repo, &editorial.Task{ID: "d", Status: editorial.StatusBlocked})
	seedTask(t, repo, &editorial.Task{ID: "e", Status: editorial.StatusReady, DueDate: &past})

	stats, err := planner.Statistics(ctx, "site-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[editorial.StatusCompleted])
	assert.Equal(t, 1, stats.BlockedCount)
	assert.Equal(t, 1, stats.OverdueCount)
	// Only completed tasks with recorded hours enter the average.
	assert.InDelta(t, 6.0, stats.AvgCompletionHours, 0.001)
}

func TestWithDependencies(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	planner := editorial.NewPlanner(repo)

	seedTask(t, repo, &editorial.Task{ID: "dep", Status: editorial.StatusCompleted})
	seedTask(t, repo, &editorial.Task{ID: "main", Status: editorial.StatusReady,
		DependsOn: []string{"dep"}, Blocks: []string{"later"}})
	seedTask(t, repo, &editorial.Task{ID: "later", Status: editorial.StatusBacklog})

	view, err := planner.WithDependencies(ctx, "main")
	require.NoError(t, err)
	require.Len(t, view.DependsOn, 1)
	assert.Equal(t, "dep", view.DependsOn[0].ID)
	require.Len(t, view.Blocks, 1)
	assert.Equal(t, "later", view.Blocks[0].ID)

	ready, err := planner.Ready(ctx, "main")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestValidateSelfDependency(t *testing.T) {
	task := &editorial.Task{ID: "x", WebsiteID: "site-1", Title: "x", DependsOn: []string{"x"}}
	assert.Error(t, task.Validate())
}
