package agent

import "context"

type Repository interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id string) (*Agent, error)
	ListByWebsite(ctx context.Context, websiteID string) ([]*Agent, error)
}

// FindContentWriter returns the first content-writing-capable agent for a
// website, or nil when none qualifies.
func FindContentWriter(ctx context.Context, repo Repository, websiteID string) (*Agent, error) {
	agents, err := repo.ListByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	for _, a := range agents {
		if a.CanWriteContent() {
			return a, nil
		}
	}
	return nil, nil
}
