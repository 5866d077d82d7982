package batch_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/internal/batch"
	"github.com/craftled/contentops/internal/batch/repositoryimpl"
	"github.com/craftled/contentops/pkg/cerr"
)

// fakeBatchAPI simulates the provider's eventually-consistent lifecycle.
type fakeBatchAPI struct {
	submitted []ai.BatchRequest
	status    ai.BatchStatus
	results   []ai.BatchResult
	cancelled []string
}

func (f *fakeBatchAPI) SubmitBatch(_ context.Context, requests []ai.BatchRequest) (string, error) {
	f.submitted = requests
	return "msgbatch_test", nil
}

func (f *fakeBatchAPI) GetBatchStatus(_ context.Context, batchID string) (*ai.BatchStatus, error) {
	st := f.status
	st.BatchID = batchID
	return &st, nil
}

func (f *fakeBatchAPI) FetchResults(_ context.Context, resultsURL string) ([]ai.BatchResult, error) {
	return f.results, nil
}

func (f *fakeBatchAPI) CancelBatch(_ context.Context, batchID string) error {
	f.cancelled = append(f.cancelled, batchID)
	return nil
}

func (f *fakeBatchAPI) ListBatches(_ context.Context, limit int) ([]ai.BatchStatus, error) {
	return nil, nil
}

func newTracker(api ai.BatchAPI) (*batch.Tracker, *repositoryimpl.MemoryCollectionStore) {
	items := repositoryimpl.NewMemoryCollectionStore()
	return batch.NewTracker(repositoryimpl.NewMemoryJobRepository(), items, api), items
}

func succeededResult(customID, name string) ai.BatchResult {
	return ai.BatchResult{
		CustomID: customID,
		Type:     "succeeded",
		Text:     fmt.Sprintf("```json\n{\"name\": %q}\n```", name),
	}
}

// Full lifecycle: submit three village requests, poll through processing to
// ended, import, then verify the double-import guard.
func TestBatchLifecycle(t *testing.T) {
	ctx := context.Background()
	api := &fakeBatchAPI{
		status: ai.BatchStatus{Status: "in_progress", RequestCounts: ai.RequestCounts{Processing: 2, Succeeded: 1}},
	}
	tracker, items := newTracker(api)

	job, err := tracker.Submit(ctx, batch.SubmitRequest{
		WebsiteID:      "w-1",
		JobType:        "collection_research",
		CollectionType: "hiking_trails",
		Units:          []string{"Monterosso", "Vernazza", "Corniglia"},
	})
	require.NoError(t, err)
	assert.Equal(t, batch.StatusProcessing, job.Status)
	assert.Equal(t, 3, job.ItemsCount)
	assert.False(t, job.ResultsProcessed)
	require.Len(t, api.submitted, 3)
	assert.Contains(t, api.submitted[0].CustomID, "Monterosso")

	polled, err := tracker.CheckStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusProcessing, polled.Status)
	assert.Equal(t, 1, polled.ItemsProcessed)

	api.status = ai.BatchStatus{
		Status:        "ended",
		RequestCounts: ai.RequestCounts{Succeeded: 3},
		ResultsURL:    "https://example.invalid/results",
	}
	polled, err = tracker.CheckStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusEnded, polled.Status)

	api.results = []ai.BatchResult{
		succeededResult("hiking_trails-0-Monterosso", "Sentiero Azzurro"),
		succeededResult("hiking_trails-1-Vernazza", "Vernazza Ridge"),
		succeededResult("hiking_trails-2-Corniglia", "Lardarina Steps"),
	}
	result, err := tracker.ProcessResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Empty(t, result.Errors)
	assert.Equal(t, batch.StatusCompleted, result.Job.Status)
	assert.True(t, result.Job.ResultsProcessed)

	count, err := items.Count(ctx, "w-1", "hiking_trails")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = tracker.ProcessResults(ctx, job.ID)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition), "second import must be rejected")
	count, err = items.Count(ctx, "w-1", "hiking_trails")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "item count unchanged after rejected second call")
}

func TestProcessResultsToleratesPartialFailures(t *testing.T) {
	ctx := context.Background()
	api := &fakeBatchAPI{
		status: ai.BatchStatus{Status: "ended", RequestCounts: ai.RequestCounts{Succeeded: 1, Errored: 2}, ResultsURL: "https://example.invalid/results"},
		results: []ai.BatchResult{
			succeededResult("restaurants-0-Manarola", "Trattoria dal Billy"),
			{CustomID: "restaurants-1-Riomaggiore", Type: "errored", Error: "overloaded"},
			{CustomID: "restaurants-2-Vernazza", Type: "succeeded", Text: "not json at all"},
		},
	}
	tracker, items := newTracker(api)

	job, err := tracker.Submit(ctx, batch.SubmitRequest{
		WebsiteID:      "w-1",
		CollectionType: "restaurants",
		Units:          []string{"Manarola", "Riomaggiore", "Vernazza"},
	})
	require.NoError(t, err)
	_, err = tracker.CheckStatus(ctx, job.ID)
	require.NoError(t, err)

	result, err := tracker.ProcessResults(ctx, job.ID)
	require.NoError(t, err, "per-item failures must not abort the batch")
	assert.Equal(t, 1, result.Imported)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, batch.StatusCompleted, result.Job.Status)

	count, err := items.Count(ctx, "w-1", "restaurants")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessResultsRejectedBeforeEnded(t *testing.T) {
	ctx := context.Background()
	api := &fakeBatchAPI{status: ai.BatchStatus{Status: "in_progress"}}
	tracker, _ := newTracker(api)

	job, err := tracker.Submit(ctx, batch.SubmitRequest{
		WebsiteID:      "w-1",
		CollectionType: "attractions",
		Units:          []string{"Corniglia"},
	})
	require.NoError(t, err)

	_, err = tracker.ProcessResults(ctx, job.ID)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestCancelOnlyFromActiveStates(t *testing.T) {
	ctx := context.Background()
	api := &fakeBatchAPI{
		status: ai.BatchStatus{Status: "ended", RequestCounts: ai.RequestCounts{Succeeded: 1}, ResultsURL: "u"},
		results: []ai.BatchResult{
			succeededResult("attractions-0-Vernazza", "Doria Castle"),
		},
	}
	tracker, _ := newTracker(api)

	job, err := tracker.Submit(ctx, batch.SubmitRequest{
		WebsiteID:      "w-1",
		CollectionType: "attractions",
		Units:          []string{"Vernazza"},
	})
	require.NoError(t, err)

	cancelled, err := tracker.Cancel(ctx, job.ID, "wrong collection")
	require.NoError(t, err)
	assert.Equal(t, batch.StatusFailed, cancelled.Status)
	assert.Equal(t, "wrong collection", cancelled.Error)
	assert.Equal(t, []string{"msgbatch_test"}, api.cancelled)

	_, err = tracker.Cancel(ctx, job.ID, "again")
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition), "terminal jobs cannot be cancelled")
}

func TestTerminalJobShortCircuitsPolling(t *testing.T) {
	ctx := context.Background()
	api := &fakeBatchAPI{status: ai.BatchStatus{Status: "in_progress"}}
	tracker, _ := newTracker(api)

	job, err := tracker.Submit(ctx, batch.SubmitRequest{
		WebsiteID:      "w-1",
		CollectionType: "attractions",
		Units:          []string{"Manarola"},
	})
	require.NoError(t, err)
	_, err = tracker.Cancel(ctx, job.ID, "")
	require.NoError(t, err)

	// A provider status flip after cancellation must not resurrect the job.
	api.status = ai.BatchStatus{Status: "ended", RequestCounts: ai.RequestCounts{Succeeded: 1}}
	got, err := tracker.CheckStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusFailed, got.Status)
}
