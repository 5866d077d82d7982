package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/pkg/cerr"
)

// Tracker wraps the asynchronous bulk AI API with a local ledger. Submit
// creates the ledger row, CheckStatus polls the provider for non-terminal
// jobs, ProcessResults imports once, Cancel aborts early.
type Tracker struct {
	jobs  JobRepository
	items CollectionStore
	api   ai.BatchAPI
}

func NewTracker(jobs JobRepository, items CollectionStore, api ai.BatchAPI) *Tracker {
	return &Tracker{jobs: jobs, items: items, api: api}
}

type SubmitRequest struct {
	WebsiteID      string
	JobType        string
	CollectionType string
	// Units are the logical request units, one provider request each.
	Units    []string
	Metadata map[string]any
}

func (t *Tracker) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if req.WebsiteID == "" || req.CollectionType == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "website_id and collection_type are required", nil)
	}
	if len(req.Units) == 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "at least one unit is required", nil)
	}
	requests := make([]ai.BatchRequest, len(req.Units))
	for i, unit := range req.Units {
		requests[i] = ai.BatchRequest{
			CustomID:     fmt.Sprintf("%s-%d-%s", req.CollectionType, i, unit),
			SystemPrompt: researchSystemPrompt,
			UserPrompt:   buildUserPrompt(req.CollectionType, unit),
		}
	}
	batchID, err := t.api.SubmitBatch(ctx, requests)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "batch submission failed", err)
	}
	now := time.Now()
	job := &Job{
		ID:             ulid.Make().String(),
		BatchID:        batchID,
		JobType:        req.JobType,
		CollectionType: req.CollectionType,
		WebsiteID:      req.WebsiteID,
		Status:         StatusProcessing,
		ItemsCount:     len(req.Units),
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := t.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "batch submitted",
		"job_id", job.ID, "batch_id", batchID, "units", len(req.Units))
	return job, nil
}

// CheckStatus refreshes a job from the provider. Terminal jobs short-circuit
// to the cached row without polling.
func (t *Tracker) CheckStatus(ctx context.Context, jobID string) (*Job, error) {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}
	status, err := t.api.GetBatchStatus(ctx, job.BatchID)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "batch status poll failed", err)
	}
	job.Status = mapProviderStatus(status.Status)
	job.ItemsProcessed = status.RequestCounts.Succeeded
	if total := status.RequestCounts.Total(); total > 0 {
		job.ItemsCount = total
	}
	job.ResultsURL = status.ResultsURL
	job.UpdatedAt = time.Now()
	if err := t.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func mapProviderStatus(provider string) Status {
	switch provider {
	case "ended":
		return StatusEnded
	case "in_progress", "canceling":
		return StatusProcessing
	default:
		return StatusProcessing
	}
}

type ImportResult struct {
	Job      *Job     `json:"job"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// ProcessResults fetches the batch results and imports each successful
// extraction as a collection item. Per-item failures are collected and do not
// abort the run; the job still completes with a partial-success count. The
// results_processed latch rejects a second call.
func (t *Tracker) ProcessResults(ctx context.Context, jobID string) (*ImportResult, error) {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultsProcessed {
		return nil, cerr.NewError(cerr.FailedPrecondition, "batch results already processed", nil)
	}
	if job.Status != StatusEnded {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("batch is %s, results can only be processed once it has ended", job.Status), nil)
	}
	if job.ResultsURL == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "batch has no results url", nil)
	}
	results, err := t.api.FetchResults(ctx, job.ResultsURL)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "fetching batch results failed", err)
	}

	imported := 0
	var importErrors []string
	for _, res := range results {
		ext := ai.ExtractContent(res)
		if !ext.Success {
			importErrors = append(importErrors, fmt.Sprintf("%s: %s", ext.CustomID, ext.Error))
			continue
		}
		item := &CollectionItem{
			ID:             ulid.Make().String(),
			WebsiteID:      job.WebsiteID,
			CollectionType: job.CollectionType,
			CustomID:       ext.CustomID,
			Data:           ext.Data,
			CreatedAt:      time.Now(),
		}
		if err := t.items.Insert(ctx, item); err != nil {
			importErrors = append(importErrors, fmt.Sprintf("%s: %v", ext.CustomID, err))
			continue
		}
		imported++
	}

	job.Status = StatusCompleted
	job.ResultsProcessed = true
	job.ItemsProcessed = imported
	if len(importErrors) > 0 {
		if job.Metadata == nil {
			job.Metadata = map[string]any{}
		}
		job.Metadata["import_errors"] = importErrors
	}
	job.UpdatedAt = time.Now()
	if err := t.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "batch results imported",
		"job_id", job.ID, "imported", imported, "errors", len(importErrors))
	return &ImportResult{Job: job, Imported: imported, Errors: importErrors}, nil
}

// Cancel aborts a pending or processing job. The provider-side cancel is
// best-effort; the local row always lands in failed with the reason.
func (t *Tracker) Cancel(ctx context.Context, jobID, reason string) (*Job, error) {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusPending && job.Status != StatusProcessing {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("batch is %s and can no longer be cancelled", job.Status), nil)
	}
	if err := t.api.CancelBatch(ctx, job.BatchID); err != nil {
		slog.WarnContext(ctx, "provider-side batch cancel failed",
			"job_id", job.ID, "batch_id", job.BatchID, "error", err)
	}
	job.Status = StatusFailed
	if reason == "" {
		reason = "cancelled"
	}
	job.Error = reason
	job.UpdatedAt = time.Now()
	if err := t.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (t *Tracker) ListJobs(ctx context.Context, websiteID string) ([]*Job, error) {
	return t.jobs.ListByWebsite(ctx, websiteID)
}
