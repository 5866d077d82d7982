package transition

import (
	"context"
	"time"
)

// AuditEntry is one immutable row in the shared state audit log.
type AuditEntry struct {
	ID         string         `json:"id" db:"id"`
	EntityID   string         `json:"entity_id" db:"entity_id"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	Event      string         `json:"event" db:"event"`
	Actor      string         `json:"actor" db:"actor"`
	ActorID    string         `json:"actor_id" db:"actor_id"`
	FromState  string         `json:"from_state" db:"from_state"`
	ToState    string         `json:"to_state" db:"to_state"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListForEntity(ctx context.Context, entityType, entityID string) ([]*AuditEntry, error)
}
