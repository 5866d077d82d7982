package repositoryimpl

import (
	"context"
	"sync"
	"time"

	"github.com/craftled/contentops/internal/question"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	tickets map[string]*question.Ticket
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tickets: map[string]*question.Ticket{}}
}

func (r *MemoryRepository) Create(ctx context.Context, t *question.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "ticket already exists", nil)
	}
	copied := *t
	r.tickets[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*question.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "ticket not found", nil)
	}
	copied := *t
	return &copied, nil
}

func (r *MemoryRepository) ListByWebsite(ctx context.Context, websiteID string, status question.Status) ([]*question.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*question.Ticket
	for _, t := range r.tickets {
		if t.WebsiteID != websiteID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, t *question.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "ticket not found", nil)
	}
	copied := *t
	copied.UpdatedAt = time.Now()
	r.tickets[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[entityID]
	if !ok {
		return cerr.NewError(cerr.NotFound, "ticket not found", nil)
	}
	t.Status = question.Status(to)
	t.UpdatedAt = time.Now()
	return nil
}
