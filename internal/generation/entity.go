package generation

import "time"

// Mode selects how far a generation run takes each task. Prepare stops at a
// content brief; generate also drafts the body through the AI provider.
type Mode string

const (
	ModePrepare  Mode = "prepare"
	ModeGenerate Mode = "generate"
)

func (m Mode) Valid() bool {
	return m == ModePrepare || m == ModeGenerate
}

// JobStatus is the generation job lifecycle. Running is exclusive per
// website; the store enforces single flight.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is the persisted record of one generation run. It survives restarts,
// so progress polling never depends on process-local state.
type Job struct {
	ID             string     `json:"id"`
	WebsiteID      string     `json:"website_id"`
	Mode           Mode       `json:"mode"`
	Status         JobStatus  `json:"status"`
	TotalTasks     int        `json:"total_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
	Errors         []string   `json:"errors,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Progress is the pollable projection of a job. Long-running failures
// surface here rather than as request errors, so a UI can always show
// partial progress next to the failure reason.
type Progress struct {
	JobID          string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	CompletedItems int       `json:"completed_items"`
	TotalItems     int       `json:"total_items"`
	Errors         []string  `json:"errors,omitempty"`
}

func (j *Job) Progress() Progress {
	return Progress{
		JobID:          j.ID,
		Status:         j.Status,
		CompletedItems: j.CompletedTasks,
		TotalItems:     j.TotalTasks,
		Errors:         j.Errors,
	}
}
