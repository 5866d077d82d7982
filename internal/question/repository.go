package question

import (
	"context"

	"github.com/craftled/contentops/internal/transition"
)

type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id string) (*Ticket, error)
	ListByWebsite(ctx context.Context, websiteID string, status Status) ([]*Ticket, error)
	Update(ctx context.Context, t *Ticket) error

	SetState(ctx context.Context, entityID string, to transition.State) error
}
