package repositoryimpl

import (
	"context"
	"sync"
	"time"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

// MemoryRepository is the in-process task store used for local development
// and tests. Filtering and ordering share the Filter/Sort semantics with the
// Postgres implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*editorial.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: map[string]*editorial.Task{}}
}

func (r *MemoryRepository) Create(ctx context.Context, t *editorial.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*editorial.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	copied := *t
	return &copied, nil
}

func (r *MemoryRepository) List(ctx context.Context, f editorial.Filter) ([]*editorial.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []*editorial.Task
	for _, t := range r.tasks {
		if f.Matches(t, now) {
			copied := *t
			out = append(out, &copied)
		}
	}
	editorial.Sort(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListByIDs(ctx context.Context, ids []string) ([]*editorial.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*editorial.Task
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListByYAMLPath(ctx context.Context, path string) ([]*editorial.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*editorial.Task
	for _, t := range r.tasks {
		if t.YAMLFilePath == path {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, t *editorial.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	copied := *t
	copied.UpdatedAt = time.Now()
	r.tasks[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[entityID]
	if !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	t.Status = editorial.Status(to)
	t.UpdatedAt = time.Now()
	return nil
}
