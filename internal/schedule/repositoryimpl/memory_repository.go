package repositoryimpl

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftled/contentops/internal/schedule"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryScheduleRepository struct {
	mu   sync.RWMutex
	rows map[string]*schedule.WebsiteSchedule
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{rows: map[string]*schedule.WebsiteSchedule{}}
}

func scheduleKey(websiteID string, scheduleType schedule.Type) string {
	return websiteID + "/" + string(scheduleType)
}

func (r *MemoryScheduleRepository) Upsert(ctx context.Context, s *schedule.WebsiteSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scheduleKey(s.WebsiteID, s.ScheduleType)
	if existing, ok := r.rows[key]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	copied := *s
	r.rows[key] = &copied
	return nil
}

func (r *MemoryScheduleRepository) Get(ctx context.Context, websiteID string, scheduleType schedule.Type) (*schedule.WebsiteSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[scheduleKey(websiteID, scheduleType)]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "schedule not found", nil)
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryScheduleRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*schedule.WebsiteSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*schedule.WebsiteSchedule
	for _, s := range r.rows {
		if s.WebsiteID == websiteID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleType < out[j].ScheduleType })
	return out, nil
}

func (r *MemoryScheduleRepository) Update(ctx context.Context, s *schedule.WebsiteSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scheduleKey(s.WebsiteID, s.ScheduleType)
	if _, ok := r.rows[key]; !ok {
		return cerr.NewError(cerr.NotFound, "schedule not found", nil)
	}
	copied := *s
	r.rows[key] = &copied
	return nil
}

func (r *MemoryScheduleRepository) Delete(ctx context.Context, websiteID string, scheduleType schedule.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scheduleKey(websiteID, scheduleType)
	if _, ok := r.rows[key]; !ok {
		return cerr.NewError(cerr.NotFound, "schedule not found", nil)
	}
	delete(r.rows, key)
	return nil
}

func (r *MemoryScheduleRepository) ListPendingSync(ctx context.Context) ([]*schedule.WebsiteSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*schedule.WebsiteSchedule
	for _, s := range r.rows {
		if s.SyncStatus == schedule.SyncStatusPending {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

type MemoryExecutionRepository struct {
	mu   sync.RWMutex
	rows map[string]*schedule.ScheduleExecution
}

func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{rows: map[string]*schedule.ScheduleExecution{}}
}

func (r *MemoryExecutionRepository) Create(ctx context.Context, e *schedule.ScheduleExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "execution already exists", nil)
	}
	copied := *e
	r.rows[e.ID] = &copied
	return nil
}

func (r *MemoryExecutionRepository) Get(ctx context.Context, id string) (*schedule.ScheduleExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "execution not found", nil)
	}
	copied := *e
	return &copied, nil
}

func (r *MemoryExecutionRepository) Update(ctx context.Context, e *schedule.ScheduleExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "execution not found", nil)
	}
	copied := *e
	r.rows[e.ID] = &copied
	return nil
}

func (r *MemoryExecutionRepository) List(ctx context.Context, filter schedule.ExecutionFilter) ([]*schedule.ScheduleExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*schedule.ScheduleExecution
	for _, e := range r.rows {
		if filter.Matches(e) {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return executionTime(out[i]).After(executionTime(out[j]))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func executionTime(e *schedule.ScheduleExecution) time.Time {
	if e.StartedAt != nil {
		return *e.StartedAt
	}
	if e.ScheduledAt != nil {
		return *e.ScheduledAt
	}
	return time.Time{}
}

func (r *MemoryExecutionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.rows {
		if e.Status.Terminal() && e.CompletedAt != nil && e.CompletedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}
