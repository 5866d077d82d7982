package batch

import "context"

type JobRepository interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, j *Job) error
	// ListByWebsite returns jobs newest first.
	ListByWebsite(ctx context.Context, websiteID string) ([]*Job, error)
}

type CollectionStore interface {
	Insert(ctx context.Context, item *CollectionItem) error
	ListByCollection(ctx context.Context, websiteID, collectionType string) ([]*CollectionItem, error)
	Count(ctx context.Context, websiteID, collectionType string) (int, error)
}
