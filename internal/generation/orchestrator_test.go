package generation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentimpl "github.com/craftled/contentops/internal/agent/repositoryimpl"
	contentimpl "github.com/craftled/contentops/internal/content/repositoryimpl"
	"github.com/craftled/contentops/internal/editorial"
	editorialimpl "github.com/craftled/contentops/internal/editorial/repositoryimpl"
	"github.com/craftled/contentops/internal/eventbus"
	"github.com/craftled/contentops/internal/generation"
	generationimpl "github.com/craftled/contentops/internal/generation/repositoryimpl"
	"github.com/craftled/contentops/internal/section"
	sectionimpl "github.com/craftled/contentops/internal/section/repositoryimpl"
	"github.com/craftled/contentops/internal/transition"
	transitionimpl "github.com/craftled/contentops/internal/transition/repositoryimpl"
	"github.com/craftled/contentops/internal/workflowengine"
	"github.com/craftled/contentops/pkg/cerr"
)

// fakeProvider scripts Generate responses; Fail makes every call error.
type fakeProvider struct {
	mu       sync.Mutex
	fail     bool
	response string
	delay    time.Duration
	calls    int
}

func (f *fakeProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	fail, response, delay := f.fail, f.response, f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail {
		return "", errors.New("provider overloaded")
	}
	return response, nil
}

type fixture struct {
	orchestrator *generation.Orchestrator
	tasks        *editorialimpl.MemoryRepository
	contents     *contentimpl.MemoryRepository
	sections     *sectionimpl.MemoryRepository
	jobs         *generationimpl.MemoryJobRepository
	provider     *fakeProvider
}

func newFixture(t *testing.T, pacing time.Duration) *fixture {
	t.Helper()
	tasks := editorialimpl.NewMemoryRepository()
	contents := contentimpl.NewMemoryRepository()
	sections := sectionimpl.NewMemoryRepository()
	jobs := generationimpl.NewMemoryJobRepository()
	provider := &fakeProvider{response: `{"blocks": [{"type": "rich_text", "content": {"text": "generated"}}]}`}
	orchestrator := generation.NewOrchestrator(generation.Deps{
		Jobs:      jobs,
		Tasks:     tasks,
		Planner:   editorial.NewPlanner(tasks),
		Contents:  contents,
		Agents:    agentimpl.NewMemoryRepository(),
		Sections:  sections,
		Provider:  provider,
		Engine:    transition.NewEngine(transitionimpl.NewMemoryAuditRepository()),
		Workflows: workflowengine.NewDisconnected(),
		Bus:       eventbus.New(),
		Pacing:    pacing,
	})
	return &fixture{
		orchestrator: orchestrator,
		tasks:        tasks,
		contents:     contents,
		sections:     sections,
		jobs:         jobs,
		provider:     provider,
	}
}

func seedTask(t *testing.T, f *fixture, title string) *editorial.Task {
	t.Helper()
	now := time.Now()
	task := &editorial.Task{
		ID:        ulid.Make().String(),
		WebsiteID: "w-1",
		Title:     title,
		Type:      editorial.TaskTypeArticle,
		Status:    editorial.StatusReady,
		Priority:  editorial.PriorityHigh,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func waitForTerminal(t *testing.T, f *fixture, jobID string) *generation.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.jobs.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status != generation.JobStatusRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("generation job never reached a terminal status")
	return nil
}

func TestStartGenerationProcessesTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	task := seedTask(t, f, "Hiking in Vernazza")

	job, err := f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	require.NoError(t, err)
	assert.Equal(t, generation.JobStatusRunning, job.Status)

	done := waitForTerminal(t, f, job.ID)
	assert.Equal(t, generation.JobStatusCompleted, done.Status)
	assert.Equal(t, 1, done.CompletedTasks)
	assert.Empty(t, done.Errors)

	item, err := f.contents.GetByEditorialTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", string(item.Status))
	require.Len(t, item.Body, 1)
	assert.Equal(t, "generated", item.Body[0].Content["text"])

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, editorial.StatusInProgress, stored.Status)
}

// Second start while a run is active must conflict and name the first job.
func TestStartGenerationSingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50*time.Millisecond)
	f.provider.delay = 50 * time.Millisecond
	seedTask(t, f, "First")
	seedTask(t, f, "Second")

	job, err := f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	require.NoError(t, err)

	_, err = f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
	assert.Contains(t, err.Error(), job.ID, "conflict names the running job")

	waitForTerminal(t, f, job.ID)
}

func TestCancelGenerationStopsLoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20*time.Millisecond)
	f.provider.delay = 30 * time.Millisecond
	for i := 0; i < 5; i++ {
		seedTask(t, f, "Task")
	}

	job, err := f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	require.NoError(t, err)

	_, err = f.orchestrator.CancelGeneration(ctx, job.ID)
	require.NoError(t, err)

	done := waitForTerminal(t, f, job.ID)
	assert.Equal(t, generation.JobStatusCancelled, done.Status)
	assert.Less(t, done.CompletedTasks, done.TotalTasks)

	// The running slot is free again.
	_, err = f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModePrepare,
	})
	require.NoError(t, err)
}

func TestGenerationFallsBackToPlaceholder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	f.provider.fail = true
	task := seedTask(t, f, "Beaches of Monterosso")

	job, err := f.orchestrator.StartGeneration(ctx, generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	require.NoError(t, err)
	done := waitForTerminal(t, f, job.ID)
	assert.Equal(t, generation.JobStatusCompleted, done.Status)
	assert.Empty(t, done.Errors, "provider failure degrades, it does not fail the task")

	item, err := f.contents.GetByEditorialTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, item.Body, 1)
	assert.Contains(t, item.Body[0].Content["text"], "Placeholder")
}

func TestStartGenerationNoEligibleTasks(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	_, err := f.orchestrator.StartGeneration(context.Background(), generation.StartRequest{
		WebsiteID: "w-1",
		Mode:      generation.ModeGenerate,
	})
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func seedSection(t *testing.T, f *fixture, sectionType string, content map[string]any) *section.Section {
	t.Helper()
	now := time.Now()
	sec := &section.Section{
		ID:        ulid.Make().String(),
		PageID:    "p-1",
		Type:      sectionType,
		Order:     -1,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.sections.Insert(context.Background(), sec))
	return sec
}

func TestOptimizeSectionPlaceholderOnProviderFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	f.provider.fail = true
	sec := seedSection(t, f, "hero", map[string]any{"headline": "Old headline"})

	result, err := f.orchestrator.OptimizeSection(ctx, sec.ID, generation.TenantContext{})
	require.NoError(t, err, "provider failure must not fail the call")
	assert.True(t, result.Success)
	assert.True(t, result.Placeholder)
	assert.Equal(t, "Welcome", result.Content["headline"], "placeholder matches the section-type template")

	versions, err := f.sections.ListVersions(ctx, sec.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "human", versions[0].Author)
	assert.Equal(t, "Old headline", versions[0].Content["headline"])
	assert.Equal(t, "ai", versions[1].Author)
}

func TestOptimizeSectionUsesProviderContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	f.provider.response = "```json\n{\"headline\": \"Cinque Terre by foot\"}\n```"
	sec := seedSection(t, f, "hero", map[string]any{"headline": "Old"})

	result, err := f.orchestrator.OptimizeSection(ctx, sec.ID, generation.TenantContext{SiteName: "Cinque Terre Guide"})
	require.NoError(t, err)
	assert.False(t, result.Placeholder)
	assert.Equal(t, "Cinque Terre by foot", result.Content["headline"])

	stored, err := f.sections.Get(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cinque Terre by foot", stored.Content["headline"])
}

func TestOptimizeAllSectionsContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	f.provider.response = `{"text": "fresh copy"}`
	first := seedSection(t, f, "rich_text", map[string]any{"text": "a"})
	second := seedSection(t, f, "rich_text", map[string]any{"text": "b"})

	results, err := f.orchestrator.OptimizeAllSections(ctx, "p-1", generation.TenantContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, first.ID, results[0].SectionID, "sections processed in page order")
	assert.Equal(t, second.ID, results[1].SectionID)
	for _, res := range results {
		assert.True(t, res.Success)
	}
}

func TestGenerateSectionsSkipsFilled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Millisecond)
	f.provider.response = `{"text": "filled in"}`
	filled := seedSection(t, f, "rich_text", map[string]any{"text": "keep me"})
	empty := seedSection(t, f, "rich_text", nil)

	results, err := f.orchestrator.GenerateSections(ctx, "p-1", generation.TenantContext{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, empty.ID, results[0].SectionID)

	kept, err := f.sections.Get(ctx, filled.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", kept.Content["text"])
}
