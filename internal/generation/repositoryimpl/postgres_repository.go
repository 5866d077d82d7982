package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/craftled/contentops/internal/generation"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const jobColumns = "id, website_id, mode, status, total_tasks, completed_tasks, errors, started_at, finished_at"

type PostgresJobRepository struct {
	db *sqlx.DB
}

func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

// CreateActive relies on the partial unique index over (website_id) WHERE
// status = 'running', which closes the check-then-set race at the database.
func (r *PostgresJobRepository) CreateActive(ctx context.Context, j *generation.Job) error {
	j.Status = generation.JobStatusRunning
	errs, err := marshalErrors(j.Errors)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("generation_jobs").
		Columns("id", "website_id", "mode", "status", "total_tasks", "completed_tasks", "errors", "started_at", "finished_at").
		Values(j.ID, j.WebsiteID, j.Mode, j.Status, j.TotalTasks, j.CompletedTasks, errs, j.StartedAt, j.FinishedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build generation job insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			active, getErr := r.GetActiveForWebsite(ctx, j.WebsiteID)
			if getErr == nil {
				return cerr.NewError(cerr.AlreadyExists,
					fmt.Sprintf("generation already running for website: job %s", active.ID), nil)
			}
			return cerr.NewError(cerr.AlreadyExists, "generation already running for website", err)
		}
		return cerr.WrapStorageWriteError("generation job", err)
	}
	return nil
}

func (r *PostgresJobRepository) Get(ctx context.Context, id string) (*generation.Job, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+jobColumns+" FROM generation_jobs WHERE id = $1", id)
	j, err := scanJob(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("generation job", err)
	}
	return j, nil
}

func (r *PostgresJobRepository) Update(ctx context.Context, j *generation.Job) error {
	errs, err := marshalErrors(j.Errors)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("generation_jobs").
		Set("status", j.Status).
		Set("total_tasks", j.TotalTasks).
		Set("completed_tasks", j.CompletedTasks).
		Set("errors", errs).
		Set("finished_at", j.FinishedAt).
		Where(sq.Eq{"id": j.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build generation job update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("generation job", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "generation job not found", nil)
	}
	return nil
}

func (r *PostgresJobRepository) GetActiveForWebsite(ctx context.Context, websiteID string) (*generation.Job, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+jobColumns+" FROM generation_jobs WHERE website_id = $1 AND status = 'running'", websiteID)
	j, err := scanJob(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("generation job", err)
	}
	return j, nil
}

func (r *PostgresJobRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*generation.Job, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT "+jobColumns+" FROM generation_jobs WHERE website_id = $1 ORDER BY started_at DESC", websiteID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("generation jobs", err)
	}
	defer rows.Close()
	var out []*generation.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("generation jobs", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func marshalErrors(errs []string) ([]byte, error) {
	if errs == nil {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("marshal generation errors: %w", err)
	}
	return raw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*generation.Job, error) {
	var j generation.Job
	var errs []byte
	var finished pq.NullTime
	if err := row.Scan(&j.ID, &j.WebsiteID, &j.Mode, &j.Status, &j.TotalTasks, &j.CompletedTasks,
		&errs, &j.StartedAt, &finished); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &j.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal generation errors: %w", err)
		}
	}
	if finished.Valid {
		t := finished.Time
		j.FinishedAt = &t
	}
	return &j, nil
}
