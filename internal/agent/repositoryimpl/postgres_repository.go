package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/agent"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *agent.Agent) error {
	// Capabilities are stored normalized; legacy string arrays only appear in
	// inbound payloads and are converted by Capability's decoder.
	capabilities, err := json.Marshal(a.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	query, args, err := psql.Insert("agents").
		Columns("id", "website_id", "name", "capabilities", "created_at", "updated_at").
		Values(a.ID, a.WebsiteID, a.Name, capabilities, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build agent insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("agent", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*agent.Agent, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT id, website_id, name, capabilities, created_at, updated_at FROM agents WHERE id = $1", id)
	a, err := scanAgent(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("agent", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*agent.Agent, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT id, website_id, name, capabilities, created_at, updated_at FROM agents WHERE website_id = $1 ORDER BY name", websiteID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("agents", err)
	}
	defer rows.Close()
	var out []*agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("agents", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*agent.Agent, error) {
	var a agent.Agent
	var capabilities []byte
	if err := row.Scan(&a.ID, &a.WebsiteID, &a.Name, &capabilities, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if len(capabilities) > 0 {
		if err := json.Unmarshal(capabilities, &a.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshal capabilities: %w", err)
		}
	}
	return &a, nil
}
