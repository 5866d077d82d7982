package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/craftled/contentops/internal/generation"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryJobRepository struct {
	mu   sync.Mutex
	rows map[string]*generation.Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{rows: map[string]*generation.Job{}}
}

func (r *MemoryJobRepository) CreateActive(ctx context.Context, j *generation.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.WebsiteID == j.WebsiteID && existing.Status == generation.JobStatusRunning {
			return cerr.NewError(cerr.AlreadyExists,
				fmt.Sprintf("generation already running for website: job %s", existing.ID), nil)
		}
	}
	copied := *j
	copied.Status = generation.JobStatusRunning
	r.rows[j.ID] = &copied
	j.Status = generation.JobStatusRunning
	return nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id string) (*generation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.rows[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "generation job not found", nil)
	}
	copied := *j
	return &copied, nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, j *generation.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[j.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "generation job not found", nil)
	}
	copied := *j
	r.rows[j.ID] = &copied
	return nil
}

func (r *MemoryJobRepository) GetActiveForWebsite(ctx context.Context, websiteID string) (*generation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.rows {
		if j.WebsiteID == websiteID && j.Status == generation.JobStatusRunning {
			copied := *j
			return &copied, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "no running generation job", nil)
}

func (r *MemoryJobRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*generation.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*generation.Job
	for _, j := range r.rows {
		if j.WebsiteID == websiteID {
			copied := *j
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
