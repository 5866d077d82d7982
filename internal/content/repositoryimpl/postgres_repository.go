package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/content"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const itemColumns = `id, website_id, title, slug, status, author_type, author_id,
body, page_id, metadata, editorial_task_id, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *content.Item) error {
	body, err := json.Marshal(item.Body)
	if err != nil {
		return fmt.Errorf("marshal content body: %w", err)
	}
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal content metadata: %w", err)
	}
	query, args, err := psql.Insert("content_items").
		Columns("id", "website_id", "title", "slug", "status", "author_type",
			"author_id", "body", "page_id", "metadata", "editorial_task_id",
			"created_at", "updated_at").
		Values(item.ID, item.WebsiteID, item.Title, item.Slug, item.Status,
			item.AuthorType, item.AuthorID, body, item.PageID, metadata,
			item.EditorialTaskID, item.CreatedAt, item.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build content insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		// The partial unique index on editorial_task_id enforces one item per task.
		return cerr.WrapStorageWriteError("content item", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*content.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM content_items WHERE id = $1", itemColumns)
	item, err := scanItem(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("content item", err)
	}
	return item, nil
}

func (r *PostgresRepository) GetByEditorialTask(ctx context.Context, taskID string) (*content.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM content_items WHERE editorial_task_id = $1", itemColumns)
	item, err := scanItem(r.db.QueryRowxContext(ctx, query, taskID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("content item", err)
	}
	return item, nil
}

func (r *PostgresRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*content.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM content_items WHERE website_id = $1 ORDER BY created_at DESC", itemColumns)
	rows, err := r.db.QueryxContext(ctx, query, websiteID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("content items", err)
	}
	defer rows.Close()
	var out []*content.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("content items", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, item *content.Item) error {
	body, err := json.Marshal(item.Body)
	if err != nil {
		return fmt.Errorf("marshal content body: %w", err)
	}
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal content metadata: %w", err)
	}
	query, args, err := psql.Update("content_items").
		Set("title", item.Title).
		Set("slug", item.Slug).
		Set("author_type", item.AuthorType).
		Set("author_id", item.AuthorID).
		Set("body", body).
		Set("page_id", item.PageID).
		Set("metadata", metadata).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build content update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("content item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "content item not found", nil)
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE content_items SET status = $1, updated_at = NOW() WHERE id = $2",
		string(to), entityID)
	if err != nil {
		return cerr.WrapStorageWriteError("content item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "content item not found", nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*content.Item, error) {
	var item content.Item
	var body, metadata []byte
	if err := row.Scan(&item.ID, &item.WebsiteID, &item.Title, &item.Slug,
		&item.Status, &item.AuthorType, &item.AuthorID, &body, &item.PageID,
		&metadata, &item.EditorialTaskID, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &item.Body); err != nil {
			return nil, fmt.Errorf("unmarshal content body: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal content metadata: %w", err)
		}
	}
	return &item, nil
}
