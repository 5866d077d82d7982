package repositoryimpl

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const taskColumns = `id, website_id, title, description, task_type, status, priority,
assigned_agent_id, assigned_user_id, depends_on, blocks, sitemap_targets, seo,
word_count_target, current_phase, phases_completed, tags, metadata, due_date,
actual_hours, yaml_file_path, yaml_file_hash, created_at, updated_at`

// priorityOrder mirrors Priority.Rank for SQL-side sorting.
const priorityOrder = `CASE priority
WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1
ELSE 0 END DESC`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *editorial.Task) error {
	row, err := taskRow(t)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("editorial_tasks").
		Columns("id", "website_id", "title", "description", "task_type", "status",
			"priority", "assigned_agent_id", "assigned_user_id", "depends_on", "blocks",
			"sitemap_targets", "seo", "word_count_target", "current_phase",
			"phases_completed", "tags", "metadata", "due_date", "actual_hours",
			"yaml_file_path", "yaml_file_hash", "created_at", "updated_at").
		Values(row...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build task insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*editorial.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM editorial_tasks WHERE id = $1", taskColumns)
	row := r.db.QueryRowxContext(ctx, query, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, f editorial.Filter) ([]*editorial.Task, error) {
	builder := psql.Select(taskColumns).From("editorial_tasks").
		OrderBy(priorityOrder, "due_date ASC NULLS LAST", "created_at DESC")

	if f.WebsiteID != "" {
		builder = builder.Where(sq.Eq{"website_id": f.WebsiteID})
	}
	if len(f.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": f.Statuses})
	}
	if len(f.Priorities) > 0 {
		builder = builder.Where(sq.Eq{"priority": f.Priorities})
	}
	if f.AssignedAgentID != "" {
		builder = builder.Where(sq.Eq{"assigned_agent_id": f.AssignedAgentID})
	}
	if f.CurrentPhase != "" {
		builder = builder.Where(sq.Eq{"current_phase": f.CurrentPhase})
	}
	if len(f.Tags) > 0 {
		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tag filter: %w", err)
		}
		builder = builder.Where("tags @> ?::jsonb", tags)
	}
	if f.Overdue != nil {
		overdueCond := "(due_date IS NOT NULL AND due_date < NOW() AND status NOT IN ('completed','cancelled'))"
		if *f.Overdue {
			builder = builder.Where(overdueCond)
		} else {
			builder = builder.Where("NOT " + overdueCond)
		}
	}
	if f.HasBlockers != nil {
		if *f.HasBlockers {
			builder = builder.Where("jsonb_array_length(depends_on) > 0")
		} else {
			builder = builder.Where("jsonb_array_length(depends_on) = 0")
		}
	}
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task select: %w", err)
	}
	return r.queryTasks(ctx, query, args...)
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]*editorial.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := psql.Select(taskColumns).From("editorial_tasks").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task select: %w", err)
	}
	return r.queryTasks(ctx, query, args...)
}

func (r *PostgresRepository) ListByYAMLPath(ctx context.Context, path string) ([]*editorial.Task, error) {
	query, args, err := psql.Select(taskColumns).From("editorial_tasks").
		Where(sq.Eq{"yaml_file_path": path}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task select: %w", err)
	}
	return r.queryTasks(ctx, query, args...)
}

func (r *PostgresRepository) Update(ctx context.Context, t *editorial.Task) error {
	depends, blocks, targets, seo, phases, tags, metadata, err := taskJSON(t)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("editorial_tasks").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("task_type", t.Type).
		Set("priority", t.Priority).
		Set("assigned_agent_id", t.AssignedAgentID).
		Set("assigned_user_id", t.AssignedUserID).
		Set("depends_on", depends).
		Set("blocks", blocks).
		Set("sitemap_targets", targets).
		Set("seo", seo).
		Set("word_count_target", t.WordCountTarget).
		Set("current_phase", t.CurrentPhase).
		Set("phases_completed", phases).
		Set("tags", tags).
		Set("metadata", metadata).
		Set("due_date", t.DueDate).
		Set("actual_hours", t.ActualHours).
		Set("yaml_file_path", t.YAMLFilePath).
		Set("yaml_file_hash", t.YAMLFileHash).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build task update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM editorial_tasks WHERE id = $1", id)
	if err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE editorial_tasks SET status = $1, updated_at = NOW() WHERE id = $2",
		string(to), entityID)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}

func (r *PostgresRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*editorial.Task, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	defer rows.Close()
	var out []*editorial.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("tasks", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*editorial.Task, error) {
	var t editorial.Task
	var depends, blocks, targets, seo, phases, tags, metadata []byte
	var dueDate sql.NullTime
	var actualHours sql.NullFloat64
	if err := row.Scan(&t.ID, &t.WebsiteID, &t.Title, &t.Description, &t.Type,
		&t.Status, &t.Priority, &t.AssignedAgentID, &t.AssignedUserID, &depends,
		&blocks, &targets, &seo, &t.WordCountTarget, &t.CurrentPhase, &phases,
		&tags, &metadata, &dueDate, &actualHours, &t.YAMLFilePath, &t.YAMLFileHash,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		data []byte
		dst  any
	}{
		{depends, &t.DependsOn},
		{blocks, &t.Blocks},
		{targets, &t.SitemapTargets},
		{seo, &t.SEO},
		{phases, &t.PhasesCompleted},
		{tags, &t.Tags},
		{metadata, &t.Metadata},
	} {
		if len(pair.data) > 0 {
			if err := json.Unmarshal(pair.data, pair.dst); err != nil {
				return nil, fmt.Errorf("unmarshal task column: %w", err)
			}
		}
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if actualHours.Valid {
		t.ActualHours = &actualHours.Float64
	}
	return &t, nil
}

func taskJSON(t *editorial.Task) (depends, blocks, targets, seo, phases, tags, metadata []byte, err error) {
	if depends, err = json.Marshal(orEmpty(t.DependsOn)); err != nil {
		return
	}
	if blocks, err = json.Marshal(orEmpty(t.Blocks)); err != nil {
		return
	}
	if targets, err = json.Marshal(orEmpty(t.SitemapTargets)); err != nil {
		return
	}
	if seo, err = json.Marshal(t.SEO); err != nil {
		return
	}
	if phases, err = json.Marshal(orEmpty(t.PhasesCompleted)); err != nil {
		return
	}
	if tags, err = json.Marshal(orEmpty(t.Tags)); err != nil {
		return
	}
	metadata, err = json.Marshal(t.Metadata)
	return
}

func taskRow(t *editorial.Task) ([]any, error) {
	depends, blocks, targets, seo, phases, tags, metadata, err := taskJSON(t)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return []any{t.ID, t.WebsiteID, t.Title, t.Description, t.Type, t.Status,
		t.Priority, t.AssignedAgentID, t.AssignedUserID, depends, blocks, targets,
		seo, t.WordCountTarget, t.CurrentPhase, phases, tags, metadata, t.DueDate,
		t.ActualHours, t.YAMLFilePath, t.YAMLFileHash, t.CreatedAt, t.UpdatedAt}, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
