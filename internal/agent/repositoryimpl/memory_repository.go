package repositoryimpl

import (
	"context"
	"sync"

	"github.com/craftled/contentops/internal/agent"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{agents: map[string]*agent.Agent{}}
}

func (r *MemoryRepository) Create(ctx context.Context, a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "agent already exists", nil)
	}
	copied := *a
	r.agents[a.ID] = &copied
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "agent not found", nil)
	}
	copied := *a
	return &copied, nil
}

func (r *MemoryRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*agent.Agent
	for _, a := range r.agents {
		if a.WebsiteID == websiteID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}
