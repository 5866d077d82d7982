package content

import (
	"context"

	"github.com/craftled/contentops/internal/transition"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	// GetByEditorialTask backs the one-task-one-item invariant; NotFound means
	// no item has been created for the task yet.
	GetByEditorialTask(ctx context.Context, taskID string) (*Item, error)
	ListByWebsite(ctx context.Context, websiteID string) ([]*Item, error)
	Update(ctx context.Context, item *Item) error

	SetState(ctx context.Context, entityID string, to transition.State) error
}
