package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/craftled/contentops/internal/schedule"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const scheduleColumns = "id, website_id, schedule_type, frequency, cron_expression, enabled, engine_schedule_id, sync_status, last_run_at, next_run_at, created_at, updated_at"

type PostgresScheduleRepository struct {
	db *sqlx.DB
}

func NewPostgresScheduleRepository(db *sqlx.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Upsert(ctx context.Context, s *schedule.WebsiteSchedule) error {
	// The conflict target is the (website_id, schedule_type) unique key; the
	// stored id and created_at survive a replace.
	query := `
		INSERT INTO website_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (website_id, schedule_type) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			cron_expression = EXCLUDED.cron_expression,
			enabled = EXCLUDED.enabled,
			engine_schedule_id = EXCLUDED.engine_schedule_id,
			sync_status = EXCLUDED.sync_status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.WebsiteID, s.ScheduleType, s.Frequency, s.CronExpression, s.Enabled,
		s.EngineScheduleID, s.SyncStatus, s.LastRunAt, s.NextRunAt, s.CreatedAt, s.UpdatedAt).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return cerr.WrapStorageWriteError("schedule", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) Get(ctx context.Context, websiteID string, scheduleType schedule.Type) (*schedule.WebsiteSchedule, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+scheduleColumns+" FROM website_schedules WHERE website_id = $1 AND schedule_type = $2",
		websiteID, scheduleType)
	s, err := scanSchedule(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("schedule", err)
	}
	return s, nil
}

func (r *PostgresScheduleRepository) ListByWebsite(ctx context.Context, websiteID string) ([]*schedule.WebsiteSchedule, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT "+scheduleColumns+" FROM website_schedules WHERE website_id = $1 ORDER BY schedule_type", websiteID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("schedules", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *PostgresScheduleRepository) Update(ctx context.Context, s *schedule.WebsiteSchedule) error {
	query, args, err := psql.Update("website_schedules").
		Set("frequency", s.Frequency).
		Set("cron_expression", s.CronExpression).
		Set("enabled", s.Enabled).
		Set("engine_schedule_id", s.EngineScheduleID).
		Set("sync_status", s.SyncStatus).
		Set("last_run_at", s.LastRunAt).
		Set("next_run_at", s.NextRunAt).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("schedule", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "schedule not found", nil)
	}
	return nil
}

func (r *PostgresScheduleRepository) Delete(ctx context.Context, websiteID string, scheduleType schedule.Type) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM website_schedules WHERE website_id = $1 AND schedule_type = $2", websiteID, scheduleType)
	if err != nil {
		return cerr.WrapStorageDeleteError("schedule", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "schedule not found", nil)
	}
	return nil
}

func (r *PostgresScheduleRepository) ListPendingSync(ctx context.Context) ([]*schedule.WebsiteSchedule, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT "+scheduleColumns+" FROM website_schedules WHERE sync_status = $1 ORDER BY updated_at",
		schedule.SyncStatusPending)
	if err != nil {
		return nil, cerr.WrapStorageReadError("schedules", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows *sqlx.Rows) ([]*schedule.WebsiteSchedule, error) {
	var out []*schedule.WebsiteSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("schedules", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*schedule.WebsiteSchedule, error) {
	var s schedule.WebsiteSchedule
	var lastRun, nextRun pq.NullTime
	if err := row.Scan(&s.ID, &s.WebsiteID, &s.ScheduleType, &s.Frequency, &s.CronExpression,
		&s.Enabled, &s.EngineScheduleID, &s.SyncStatus, &lastRun, &nextRun, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		t := lastRun.Time
		s.LastRunAt = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		s.NextRunAt = &t
	}
	return &s, nil
}

const executionColumns = "id, website_id, schedule_id, schedule_type, workflow_type, workflow_id, trigger_type, status, scheduled_at, started_at, completed_at, triggered_by, result, error"

type PostgresExecutionRepository struct {
	db *sqlx.DB
}

func NewPostgresExecutionRepository(db *sqlx.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

func (r *PostgresExecutionRepository) Create(ctx context.Context, e *schedule.ScheduleExecution) error {
	result, err := marshalResult(e.Result)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("schedule_executions").
		Columns("id", "website_id", "schedule_id", "schedule_type", "workflow_type", "workflow_id",
			"trigger_type", "status", "scheduled_at", "started_at", "completed_at", "triggered_by", "result", "error").
		Values(e.ID, e.WebsiteID, orNil(e.ScheduleID), e.ScheduleType, e.WorkflowType, e.WorkflowID,
			e.TriggerType, e.Status, e.ScheduledAt, e.StartedAt, e.CompletedAt, e.TriggeredBy, result, e.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("build execution insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("execution", err)
	}
	return nil
}

func (r *PostgresExecutionRepository) Get(ctx context.Context, id string) (*schedule.ScheduleExecution, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+executionColumns+" FROM schedule_executions WHERE id = $1", id)
	e, err := scanExecution(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("execution", err)
	}
	return e, nil
}

func (r *PostgresExecutionRepository) Update(ctx context.Context, e *schedule.ScheduleExecution) error {
	result, err := marshalResult(e.Result)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("schedule_executions").
		Set("status", e.Status).
		Set("workflow_type", e.WorkflowType).
		Set("workflow_id", e.WorkflowID).
		Set("started_at", e.StartedAt).
		Set("completed_at", e.CompletedAt).
		Set("result", result).
		Set("error", e.Error).
		Where(sq.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build execution update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("execution", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "execution not found", nil)
	}
	return nil
}

func (r *PostgresExecutionRepository) List(ctx context.Context, filter schedule.ExecutionFilter) ([]*schedule.ScheduleExecution, error) {
	builder := psql.Select(executionColumns).
		From("schedule_executions").
		OrderBy("COALESCE(started_at, scheduled_at) DESC NULLS LAST")
	if filter.WebsiteID != "" {
		builder = builder.Where(sq.Eq{"website_id": filter.WebsiteID})
	}
	if filter.ScheduleType != "" {
		builder = builder.Where(sq.Eq{"schedule_type": filter.ScheduleType})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.From != nil {
		builder = builder.Where("COALESCE(started_at, scheduled_at) >= ?", *filter.From)
	}
	if filter.To != nil {
		builder = builder.Where("COALESCE(started_at, scheduled_at) <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build execution query: %w", err)
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapStorageReadError("executions", err)
	}
	defer rows.Close()
	var out []*schedule.ScheduleExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("executions", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresExecutionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM schedule_executions WHERE status IN ('completed', 'failed', 'cancelled') AND completed_at < $1", cutoff)
	if err != nil {
		return 0, cerr.WrapStorageDeleteError("executions", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func marshalResult(result map[string]any) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal execution result: %w", err)
	}
	return raw, nil
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanExecution(row rowScanner) (*schedule.ScheduleExecution, error) {
	var e schedule.ScheduleExecution
	var scheduleID *string
	var scheduledAt, startedAt, completedAt pq.NullTime
	var result []byte
	if err := row.Scan(&e.ID, &e.WebsiteID, &scheduleID, &e.ScheduleType, &e.WorkflowType, &e.WorkflowID,
		&e.TriggerType, &e.Status, &scheduledAt, &startedAt, &completedAt, &e.TriggeredBy, &result, &e.Error); err != nil {
		return nil, err
	}
	if scheduleID != nil {
		e.ScheduleID = *scheduleID
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		e.ScheduledAt = &t
	}
	if startedAt.Valid {
		t := startedAt.Time
		e.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &e.Result); err != nil {
			return nil, fmt.Errorf("unmarshal execution result: %w", err)
		}
	}
	return &e, nil
}
