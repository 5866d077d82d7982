package batch

import "time"

// Status is the local batch job lifecycle. Provider vocabulary maps onto it:
// in_progress and canceling stay processing, ended becomes ended, and the
// importer moves ended jobs to completed. Cancellation lands in failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusEnded      Status = "ended"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the local ledger row for one provider-side batch.
// ResultsProcessed is a one-way latch that blocks double-import.
type Job struct {
	ID               string         `json:"id"`
	BatchID          string         `json:"batch_id"`
	JobType          string         `json:"job_type"`
	CollectionType   string         `json:"collection_type"`
	WebsiteID        string         `json:"website_id"`
	Status           Status         `json:"status"`
	ItemsCount       int            `json:"items_count"`
	ItemsProcessed   int            `json:"items_processed"`
	ResultsProcessed bool           `json:"results_processed"`
	ResultsURL       string         `json:"results_url,omitempty"`
	Error            string         `json:"error,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CollectionItem is one imported result row.
type CollectionItem struct {
	ID             string         `json:"id"`
	WebsiteID      string         `json:"website_id"`
	CollectionType string         `json:"collection_type"`
	CustomID       string         `json:"custom_id"`
	Data           map[string]any `json:"data"`
	CreatedAt      time.Time      `json:"created_at"`
}
