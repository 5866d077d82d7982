package repositoryimpl

import (
	"context"
	"sync"

	"github.com/craftled/contentops/internal/transition"
)

// MemoryAuditRepository keeps the audit log in process. Used for local
// development and tests.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*transition.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(ctx context.Context, entry *transition.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *MemoryAuditRepository) ListForEntity(ctx context.Context, entityType, entityID string) ([]*transition.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*transition.AuditEntry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}
