package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/batch"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const jobColumns = "id, batch_id, job_type, collection_type, website_id, status, items_count, items_processed, results_processed, results_url, error, metadata, created_at, updated_at"

type PostgresJobRepository struct {
	db *sqlx.DB
}

func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, j *batch.Job) error {
	metadata, err := marshalMetadata(j.Metadata)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("batch_jobs").
		Columns("id", "batch_id", "job_type", "collection_type", "website_id", "status",
			"items_count", "items_processed", "results_processed", "results_url", "error", "metadata",
			"created_at", "updated_at").
		Values(j.ID, j.BatchID, j.JobType, j.CollectionType, j.WebsiteID, j.Status,
			j.ItemsCount, j.ItemsProcessed, j.ResultsProcessed, j.ResultsURL, j.Error, metadata,
			j.CreatedAt, j.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build batch job insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("batch job", err)
	}
	return nil
}

func (r *PostgresJobRepository) Get(ctx context.Context, id string) (*batch.Job, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+jobColumns+" FROM batch_jobs WHERE id = $1", id)
	j, err := scanJob(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("batch job", err)
	}
	return j, nil
}

func (r *PostgresJobRepository) Update(ctx context.Context, j *batch.Job) error {
	metadata, err := marshalMetadata(j.Metadata)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("batch_jobs").
		Set("status", j.Status).
		Set("items_count", j.ItemsCount).
		Set("items_processed", j.ItemsProcessed).
		Set("results_processed", j.ResultsProcessed).
		Set("results_url", j.ResultsURL).
		Set("error", j.Error).
		Set("metadata", metadata).
		Set("updated_at", j.UpdatedAt).
		Where(sq.Eq{"id": j.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build batch job update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("batch job", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "batch job not found", nil)
	}
	return nil
}

func (r *PostgresJobRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*batch.Job, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT "+jobColumns+" FROM batch_jobs WHERE website_id = $1 ORDER BY created_at DESC", websiteID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("batch jobs", err)
	}
	defer rows.Close()
	var out []*batch.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("batch jobs", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal batch job metadata: %w", err)
	}
	return raw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*batch.Job, error) {
	var j batch.Job
	var metadata []byte
	if err := row.Scan(&j.ID, &j.BatchID, &j.JobType, &j.CollectionType, &j.WebsiteID, &j.Status,
		&j.ItemsCount, &j.ItemsProcessed, &j.ResultsProcessed, &j.ResultsURL, &j.Error, &metadata,
		&j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &j.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal batch job metadata: %w", err)
		}
	}
	return &j, nil
}

type PostgresCollectionStore struct {
	db *sqlx.DB
}

func NewPostgresCollectionStore(db *sqlx.DB) *PostgresCollectionStore {
	return &PostgresCollectionStore{db: db}
}

func (s *PostgresCollectionStore) Insert(ctx context.Context, item *batch.CollectionItem) error {
	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("marshal collection item: %w", err)
	}
	query, args, err := psql.Insert("collection_items").
		Columns("id", "website_id", "collection_type", "custom_id", "data", "created_at").
		Values(item.ID, item.WebsiteID, item.CollectionType, item.CustomID, data, item.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build collection item insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("collection item", err)
	}
	return nil
}

func (s *PostgresCollectionStore) ListByCollection(ctx context.Context, websiteID, collectionType string) ([]*batch.CollectionItem, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, website_id, collection_type, custom_id, data, created_at FROM collection_items WHERE website_id = $1 AND collection_type = $2 ORDER BY created_at",
		websiteID, collectionType)
	if err != nil {
		return nil, cerr.WrapStorageReadError("collection items", err)
	}
	defer rows.Close()
	var out []*batch.CollectionItem
	for rows.Next() {
		var item batch.CollectionItem
		var data []byte
		if err := rows.Scan(&item.ID, &item.WebsiteID, &item.CollectionType, &item.CustomID, &data, &item.CreatedAt); err != nil {
			return nil, cerr.WrapStorageReadError("collection items", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &item.Data); err != nil {
				return nil, fmt.Errorf("unmarshal collection item: %w", err)
			}
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *PostgresCollectionStore) Count(ctx context.Context, websiteID, collectionType string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM collection_items WHERE website_id = $1 AND collection_type = $2",
		websiteID, collectionType)
	if err != nil {
		return 0, cerr.WrapStorageReadError("collection items", err)
	}
	return count, nil
}
