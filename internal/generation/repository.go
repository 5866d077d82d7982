package generation

import "context"

type JobRepository interface {
	// CreateActive inserts a running job. When the website already has a
	// running job the insert fails with an AlreadyExists error naming the
	// active job's id; the uniqueness check and the insert are one atomic
	// operation.
	CreateActive(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, j *Job) error
	// GetActiveForWebsite returns the running job, or NotFound.
	GetActiveForWebsite(ctx context.Context, websiteID string) (*Job, error)
	ListByWebsite(ctx context.Context, websiteID string) ([]*Job, error)
}
