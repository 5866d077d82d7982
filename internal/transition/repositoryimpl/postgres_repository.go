package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/transition"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresAuditRepository struct {
	db *sqlx.DB
}

func NewPostgresAuditRepository(db *sqlx.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

func (r *PostgresAuditRepository) Append(ctx context.Context, entry *transition.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	query, args, err := psql.Insert("state_audit_log").
		Columns("id", "entity_id", "entity_type", "event", "actor", "actor_id",
			"from_state", "to_state", "metadata", "created_at").
		Values(entry.ID, entry.EntityID, entry.EntityType, entry.Event, entry.Actor,
			entry.ActorID, entry.FromState, entry.ToState, metadata, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) ListForEntity(ctx context.Context, entityType, entityID string) ([]*transition.AuditEntry, error) {
	query, args, err := psql.Select("id", "entity_id", "entity_type", "event", "actor",
		"actor_id", "from_state", "to_state", "metadata", "created_at").
		From("state_audit_log").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit select: %w", err)
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []*transition.AuditEntry
	for rows.Next() {
		var e transition.AuditEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.EntityID, &e.EntityType, &e.Event, &e.Actor,
			&e.ActorID, &e.FromState, &e.ToState, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
