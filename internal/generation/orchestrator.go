package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/craftled/contentops/internal/agent"
	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/internal/content"
	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/eventbus"
	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/internal/workflowengine"
	"github.com/craftled/contentops/pkg/cerr"
)

const defaultPacing = 100 * time.Millisecond

// Orchestrator drives batch content generation and section optimization.
// Long runs are detached from the triggering request; callers poll the
// persisted job instead of awaiting. Items are processed strictly in order,
// one at a time, which keeps progress accounting simple and stays friendly
// to provider rate limits.
type Orchestrator struct {
	jobs      JobRepository
	tasks     editorial.Repository
	planner   *editorial.Planner
	contents  content.Repository
	agents    agent.Repository
	sections  section.Repository
	provider  ai.Provider
	engine    *transition.Engine
	workflows workflowengine.Engine
	bus       *eventbus.Bus
	pacing    time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

type Deps struct {
	Jobs      JobRepository
	Tasks     editorial.Repository
	Planner   *editorial.Planner
	Contents  content.Repository
	Agents    agent.Repository
	Sections  section.Repository
	Provider  ai.Provider
	Engine    *transition.Engine
	Workflows workflowengine.Engine
	Bus       *eventbus.Bus
	// Pacing is the delay between items in a batch run; zero selects the
	// default.
	Pacing time.Duration
}

func NewOrchestrator(deps Deps) *Orchestrator {
	pacing := deps.Pacing
	if pacing <= 0 {
		pacing = defaultPacing
	}
	return &Orchestrator{
		jobs:      deps.Jobs,
		tasks:     deps.Tasks,
		planner:   deps.Planner,
		contents:  deps.Contents,
		agents:    deps.Agents,
		sections:  deps.Sections,
		provider:  deps.Provider,
		engine:    deps.Engine,
		workflows: deps.Workflows,
		bus:       deps.Bus,
		pacing:    pacing,
		cancels:   map[string]context.CancelFunc{},
	}
}

type StartRequest struct {
	WebsiteID string
	Mode      Mode
	Limit     int
	Priority  editorial.Priority
	Tenant    TenantContext
}

// StartGeneration selects eligible tasks and launches a detached run. The
// persisted job row is the single source of truth for progress; a second
// call while one run is active fails with a conflict naming the running
// job's id.
func (o *Orchestrator) StartGeneration(ctx context.Context, req StartRequest) (*Job, error) {
	if req.WebsiteID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "website_id is required", nil)
	}
	if !req.Mode.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown mode %q", req.Mode), nil)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	tasks, err := o.planner.SelectForGeneration(ctx, req.WebsiteID, limit, req.Priority)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, cerr.NewError(cerr.FailedPrecondition, "no eligible tasks to generate", nil)
	}

	job := &Job{
		ID:         ulid.Make().String(),
		WebsiteID:  req.WebsiteID,
		Mode:       req.Mode,
		TotalTasks: len(tasks),
		StartedAt:  time.Now(),
	}
	if err := o.jobs.CreateActive(ctx, job); err != nil {
		return nil, err
	}
	o.bus.PublishNew(eventbus.EventTypeGenerationStarted, job.ID, string(req.Mode), map[string]string{
		"website_id": req.WebsiteID,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	go o.run(runCtx, job, tasks, req.Tenant)
	return job, nil
}

// run is the detached batch loop. Tasks are processed in planner order, each
// fully finished before the next starts; cancellation is checked between
// items and inside every provider call through ctx.
func (o *Orchestrator) run(ctx context.Context, job *Job, tasks []*editorial.Task, tenant TenantContext) {
	defer func() {
		cancelled := ctx.Err() != nil
		o.mu.Lock()
		if cancel, ok := o.cancels[job.ID]; ok {
			cancel()
			delete(o.cancels, job.ID)
		}
		o.mu.Unlock()
		o.finalize(job, cancelled)
	}()

	for i, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.pacing):
			}
		}
		if err := o.processTask(ctx, job, task, tenant); err != nil {
			if ctx.Err() != nil {
				return
			}
			job.Errors = append(job.Errors, fmt.Sprintf("%s: %v", task.ID, err))
			slog.WarnContext(ctx, "task generation failed, continuing batch",
				"job_id", job.ID, "task_id", task.ID, "error", err)
		}
		job.CompletedTasks = i + 1
		if err := o.jobs.Update(ctx, job); err != nil {
			slog.WarnContext(ctx, "failed to persist generation progress",
				"job_id", job.ID, "error", err)
		}
	}
}

func (o *Orchestrator) finalize(job *Job, cancelled bool) {
	ctx := context.Background()
	now := time.Now()
	job.FinishedAt = &now
	if cancelled {
		job.Status = JobStatusCancelled
	} else {
		job.Status = JobStatusCompleted
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		slog.Warn("failed to finalize generation job", "job_id", job.ID, "error", err)
		return
	}
	o.bus.PublishNew(eventbus.EventTypeExecutionFinished, job.ID, string(job.Status), map[string]string{
		"website_id": job.WebsiteID,
	})
	slog.Info("generation run finished",
		"job_id", job.ID, "status", job.Status,
		"completed", job.CompletedTasks, "total", job.TotalTasks, "errors", len(job.Errors))
}

// processTask takes one editorial task through brief creation (and drafting
// in generate mode), then moves the task itself to in_progress.
func (o *Orchestrator) processTask(ctx context.Context, job *Job, task *editorial.Task, tenant TenantContext) error {
	item, err := o.ensureContentItem(ctx, task)
	if err != nil {
		return err
	}

	if job.Mode == ModeGenerate {
		if err := o.draftItem(ctx, item, task, tenant); err != nil {
			return err
		}
	}

	if o.workflows.IsConnected() {
		workflowID := fmt.Sprintf("generate-%s-%s", job.ID, task.ID)
		err := o.workflows.StartWorkflow(ctx, "content-generation", map[string]any{
			"task_id":    task.ID,
			"content_id": item.ID,
			"mode":       string(job.Mode),
		}, workflowID)
		if err != nil {
			slog.WarnContext(ctx, "workflow start failed, generation continues locally",
				"task_id", task.ID, "error", err)
		}
	} else {
		slog.DebugContext(ctx, "workflow engine not connected, skipping workflow start",
			"task_id", task.ID)
	}

	return o.advanceTask(ctx, task)
}

// ensureContentItem reuses the task's existing item or creates one and
// drives it to brief_created. One item per task is enforced by the store.
func (o *Orchestrator) ensureContentItem(ctx context.Context, task *editorial.Task) (*content.Item, error) {
	item, err := o.contents.GetByEditorialTask(ctx, task.ID)
	if err == nil {
		return item, nil
	}
	if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}

	now := time.Now()
	item = &content.Item{
		ID:              ulid.Make().String(),
		WebsiteID:       task.WebsiteID,
		Title:           task.Title,
		Status:          content.Status(transition.ContentMachine.Initial),
		EditorialTaskID: task.ID,
		Metadata: map[string]any{
			"target_query":     task.SEO.TargetQuery,
			"meta_description": task.SEO.MetaDescription,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if writer, err := agent.FindContentWriter(ctx, o.agents, task.WebsiteID); err == nil && writer != nil {
		item.AuthorType = content.AuthorTypeAgent
		item.AuthorID = writer.ID
	}
	if err := o.contents.Create(ctx, item); err != nil {
		return nil, err
	}
	o.bus.PublishNew(eventbus.EventTypeContentCreated, item.ID, task.ID, map[string]string{
		"website_id": task.WebsiteID,
	})

	for _, event := range []transition.Event{transition.ContentEventPlan, transition.ContentEventCreateBrief} {
		res, err := o.engine.Execute(ctx, transition.ContentMachine, o.contents, transition.Request{
			EntityID:     item.ID,
			EntityType:   transition.EntityTypeContentItem,
			CurrentState: transition.State(item.Status),
			Event:        event,
			Actor:        "agent",
			ActorID:      item.AuthorID,
		})
		if err != nil {
			return nil, err
		}
		if !res.Success {
			return nil, fmt.Errorf("content transition %s rejected: %s", event, res.Reason)
		}
		item.Status = content.Status(res.To)
	}
	return item, nil
}

// draftItem fills the item body from the provider, or from placeholder
// blocks when the provider fails. Provider failure degrades, it never aborts
// the task.
func (o *Orchestrator) draftItem(ctx context.Context, item *content.Item, task *editorial.Task, tenant TenantContext) error {
	var blocks []content.Block
	text, err := o.provider.Generate(ctx, tenant.systemPrompt(), taskUserPrompt(task))
	if err == nil {
		if data, parseErr := ai.ExtractJSONObject(text); parseErr == nil {
			blocks = blocksFromData(data)
		} else {
			err = parseErr
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(blocks) == 0 {
		if err != nil {
			slog.WarnContext(ctx, "provider draft failed, using placeholder content",
				"task_id", task.ID, "error", err)
		}
		for _, raw := range placeholderBlocks(task.Title) {
			blocks = append(blocks, content.Block{
				Type:    raw["type"].(string),
				Content: raw["content"].(map[string]any),
			})
		}
	}
	item.Body = blocks
	item.UpdatedAt = time.Now()
	if err := o.contents.Update(ctx, item); err != nil {
		return err
	}
	if item.Status == content.StatusBriefCreated {
		res, err := o.engine.Execute(ctx, transition.ContentMachine, o.contents, transition.Request{
			EntityID:     item.ID,
			EntityType:   transition.EntityTypeContentItem,
			CurrentState: transition.State(item.Status),
			Event:        transition.ContentEventDraft,
			Actor:        "agent",
			ActorID:      item.AuthorID,
		})
		if err != nil {
			return err
		}
		if res.Success {
			item.Status = content.Status(res.To)
		}
	}
	return nil
}

func blocksFromData(data map[string]any) []content.Block {
	raw, ok := data["blocks"].([]any)
	if !ok {
		return nil
	}
	var out []content.Block
	for _, entry := range raw {
		block, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		blockType, _ := block["type"].(string)
		blockContent, _ := block["content"].(map[string]any)
		if blockType == "" || blockContent == nil {
			continue
		}
		out = append(out, content.Block{Type: blockType, Content: blockContent})
	}
	return out
}

// advanceTask moves a backlog or ready task to in_progress through the
// transition engine. Tasks already further along are left alone.
func (o *Orchestrator) advanceTask(ctx context.Context, task *editorial.Task) error {
	state := transition.State(task.Status)
	if state == "backlog" {
		res, err := o.engine.Execute(ctx, transition.TaskMachine, o.tasks, transition.Request{
			EntityID:     task.ID,
			EntityType:   transition.EntityTypeEditorialTask,
			CurrentState: state,
			Event:        transition.TaskEventReady,
			Actor:        "system",
		})
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("task transition ready rejected: %s", res.Reason)
		}
		state = res.To
	}
	if state != "ready" {
		return nil
	}
	res, err := o.engine.Execute(ctx, transition.TaskMachine, o.tasks, transition.Request{
		EntityID:     task.ID,
		EntityType:   transition.EntityTypeEditorialTask,
		CurrentState: state,
		Event:        transition.TaskEventStart,
		Actor:        "system",
		Metadata:     map[string]any{"has_blockers": task.HasBlockers()},
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("task transition start rejected: %s", res.Reason)
	}
	task.Status = editorial.Status(res.To)
	o.bus.PublishNew(eventbus.EventTypeTaskStatusChanged, task.ID, string(res.To), nil)
	return nil
}

// Progress returns the pollable view of a job.
func (o *Orchestrator) Progress(ctx context.Context, jobID string) (*Progress, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	p := job.Progress()
	return &p, nil
}

// CancelGeneration stops a running job. The loop observes the cancelled
// context between and during items; a job whose process died is finalized
// directly.
func (o *Orchestrator) CancelGeneration(ctx context.Context, jobID string) (*Job, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobStatusRunning {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("generation job is %s and cannot be cancelled", job.Status), nil)
	}
	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
		return job, nil
	}
	// No live loop for this row: the process restarted mid-run. Close it out
	// here so the unique running slot frees up.
	now := time.Now()
	job.Status = JobStatusCancelled
	job.FinishedAt = &now
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (o *Orchestrator) ListJobs(ctx context.Context, websiteID string) ([]*Job, error) {
	return o.jobs.ListByWebsite(ctx, websiteID)
}
