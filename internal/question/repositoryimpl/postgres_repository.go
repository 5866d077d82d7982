package repositoryimpl

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/question"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const ticketColumns = `id, website_id, creator_agent_id, target_role, target_user_id,
question, answer, answered_by, status, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *question.Ticket) error {
	query, args, err := psql.Insert("question_tickets").
		Columns("id", "website_id", "creator_agent_id", "target_role", "target_user_id",
			"question", "answer", "answered_by", "status", "created_at", "updated_at").
		Values(t.ID, t.WebsiteID, t.CreatorAgentID, t.TargetRole, t.TargetUserID,
			t.Question, t.Answer, t.AnsweredBy, t.Status, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("ticket", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*question.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM question_tickets WHERE id = $1", ticketColumns)
	var t question.Ticket
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&t.ID, &t.WebsiteID,
		&t.CreatorAgentID, &t.TargetRole, &t.TargetUserID, &t.Question, &t.Answer,
		&t.AnsweredBy, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, cerr.WrapStorageReadError("ticket", err)
	}
	return &t, nil
}

func (r *PostgresRepository) ListByWebsite(ctx context.Context, websiteID string, status question.Status) ([]*question.Ticket, error) {
	builder := psql.Select(ticketColumns).From("question_tickets").
		Where(sq.Eq{"website_id": websiteID}).
		OrderBy("created_at DESC")
	if status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket select: %w", err)
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tickets", err)
	}
	defer rows.Close()
	var out []*question.Ticket
	for rows.Next() {
		var t question.Ticket
		if err := rows.Scan(&t.ID, &t.WebsiteID, &t.CreatorAgentID, &t.TargetRole,
			&t.TargetUserID, &t.Question, &t.Answer, &t.AnsweredBy, &t.Status,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, cerr.WrapStorageReadError("tickets", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, t *question.Ticket) error {
	query, args, err := psql.Update("question_tickets").
		Set("answer", t.Answer).
		Set("answered_by", t.AnsweredBy).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cerr.WrapStorageWriteError("ticket", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "ticket not found", nil)
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, entityID string, to transition.State) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE question_tickets SET status = $1, updated_at = NOW() WHERE id = $2",
		string(to), entityID)
	if err != nil {
		return cerr.WrapStorageWriteError("ticket", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "ticket not found", nil)
	}
	return nil
}
