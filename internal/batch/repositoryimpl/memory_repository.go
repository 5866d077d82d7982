package repositoryimpl

import (
	"context"
	"sort"
	"sync"

	"github.com/craftled/contentops/internal/batch"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryJobRepository struct {
	mu   sync.RWMutex
	rows map[string]*batch.Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{rows: map[string]*batch.Job{}}
}

func (r *MemoryJobRepository) Create(ctx context.Context, j *batch.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[j.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "batch job already exists", nil)
	}
	copied := *j
	r.rows[j.ID] = &copied
	return nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id string) (*batch.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.rows[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "batch job not found", nil)
	}
	copied := *j
	return &copied, nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, j *batch.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[j.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "batch job not found", nil)
	}
	copied := *j
	r.rows[j.ID] = &copied
	return nil
}

func (r *MemoryJobRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*batch.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*batch.Job
	for _, j := range r.rows {
		if j.WebsiteID == websiteID {
			copied := *j
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MemoryCollectionStore struct {
	mu   sync.RWMutex
	rows map[string]*batch.CollectionItem
}

func NewMemoryCollectionStore() *MemoryCollectionStore {
	return &MemoryCollectionStore{rows: map[string]*batch.CollectionItem{}}
}

func (s *MemoryCollectionStore) Insert(ctx context.Context, item *batch.CollectionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[item.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "collection item already exists", nil)
	}
	copied := *item
	s.rows[item.ID] = &copied
	return nil
}

func (s *MemoryCollectionStore) ListByCollection(ctx context.Context, websiteID, collectionType string) ([]*batch.CollectionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*batch.CollectionItem
	for _, item := range s.rows {
		if item.WebsiteID == websiteID && item.CollectionType == collectionType {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryCollectionStore) Count(ctx context.Context, websiteID, collectionType string) (int, error) {
	items, err := s.ListByCollection(ctx, websiteID, collectionType)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
