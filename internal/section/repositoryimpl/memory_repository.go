package repositoryimpl

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/pkg/cerr"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	sections map[string]*section.Section
	versions map[string][]*section.Version
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sections: map[string]*section.Section{},
		versions: map[string][]*section.Version{},
	}
}

// pageSections returns the page's sections ordered by position. Callers hold
// the lock.
func (r *MemoryRepository) pageSections(pageID string) []*section.Section {
	var out []*section.Section
	for _, s := range r.sections {
		if s.PageID == pageID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func reindex(sections []*section.Section) {
	for i, s := range sections {
		s.Order = i
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, s *section.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sections[s.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "section already exists", nil)
	}
	copied := *s
	page := r.pageSections(s.PageID)
	at := copied.Order
	if at < 0 || at > len(page) {
		at = len(page)
	}
	page = append(page[:at], append([]*section.Section{&copied}, page[at:]...)...)
	reindex(page)
	r.sections[s.ID] = &copied
	s.Order = copied.Order
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*section.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sections[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "section not found", nil)
	}
	copied := *s
	return &copied, nil
}

func (r *MemoryRepository) ListByPage(ctx context.Context, pageID string) ([]*section.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page := r.pageSections(pageID)
	out := make([]*section.Section, len(page))
	for i, s := range page {
		copied := *s
		out[i] = &copied
	}
	return out, nil
}

func (r *MemoryRepository) UpdateContent(ctx context.Context, id string, content map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sections[id]
	if !ok {
		return cerr.NewError(cerr.NotFound, "section not found", nil)
	}
	s.Content = content
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sections[id]
	if !ok {
		return cerr.NewError(cerr.NotFound, "section not found", nil)
	}
	delete(r.sections, id)
	reindex(r.pageSections(s.PageID))
	return nil
}

func (r *MemoryRepository) Reorder(ctx context.Context, pageID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := r.pageSections(pageID)
	if len(orderedIDs) != len(page) {
		return cerr.NewError(cerr.InvalidArgument, "reorder must list every section of the page", nil)
	}
	seen := map[string]bool{}
	for pos, id := range orderedIDs {
		s, ok := r.sections[id]
		if !ok || s.PageID != pageID {
			return cerr.NewError(cerr.InvalidArgument, "reorder references a section outside the page", nil)
		}
		if seen[id] {
			return cerr.NewError(cerr.InvalidArgument, "reorder lists a section twice", nil)
		}
		seen[id] = true
		s.Order = pos
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (r *MemoryRepository) AddVersion(ctx context.Context, v *section.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *v
	r.versions[v.SectionID] = append(r.versions[v.SectionID], &copied)
	return nil
}

func (r *MemoryRepository) ListVersions(ctx context.Context, sectionID string) ([]*section.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.versions[sectionID]
	out := make([]*section.Version, len(versions))
	for i, v := range versions {
		copied := *v
		out[i] = &copied
	}
	return out, nil
}
