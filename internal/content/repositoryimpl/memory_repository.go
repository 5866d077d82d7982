package repositoryimpl

import (
	"context"
	"sync"
	"time"

	"github.com/craftled/contentops/internal/content"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*content.Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]*content.Item{}}
}

func (r *MemoryRepository) Create(ctx context.Context, item *content.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "content item already exists", nil)
	}
	if item.EditorialTaskID != "" {
		for _, existing := range r.items {
			if existing.EditorialTaskID == item.EditorialTaskID {
				return cerr.NewError(cerr.AlreadyExists, "content item already exists for task", nil)
			}
		}
	}
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "content item not found", nil)
	}
	copied := *item
	return &copied, nil
}

func (r *MemoryRepository) GetByEditorialTask(ctx context.Context, taskID string) (*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.EditorialTaskID == taskID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "content item not found", nil)
}

func (r *MemoryRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*content.Item
	for _, item := range r.items {
		if item.WebsiteID == websiteID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, item *content.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "content item not found", nil)
	}
	copied := *item
	copied.UpdatedAt = time.Now()
	r.items[item.ID] = &copied
	return nil
}

func (r *MemoryRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[entityID]
	if !ok {
		return cerr.NewError(cerr.NotFound, "content item not found", nil)
	}
	item.Status = content.Status(to)
	item.UpdatedAt = time.Now()
	return nil
}
