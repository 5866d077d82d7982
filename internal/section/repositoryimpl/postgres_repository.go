package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/pkg/cerr"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sectionColumns = "id, page_id, type, variant, position, content, prompts, ai_hints, collection_source, created_at, updated_at"

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, s *section.Section) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM page_sections WHERE page_id = $1", s.PageID); err != nil {
		return cerr.WrapStorageReadError("sections", err)
	}
	at := s.Order
	if at < 0 || at > count {
		at = count
	}
	// Shift trailing sections up before inserting at the target position.
	if _, err := tx.ExecContext(ctx,
		"UPDATE page_sections SET position = position + 1 WHERE page_id = $1 AND position >= $2",
		s.PageID, at); err != nil {
		return cerr.WrapStorageWriteError("sections", err)
	}

	content, prompts, hints, source, err := marshalSectionJSON(s)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("page_sections").
		Columns("id", "page_id", "type", "variant", "position", "content", "prompts", "ai_hints", "collection_source", "created_at", "updated_at").
		Values(s.ID, s.PageID, s.Type, s.Variant, at, content, prompts, hints, source, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build section insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	if err := tx.Commit(); err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	s.Order = at
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*section.Section, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT "+sectionColumns+" FROM page_sections WHERE id = $1", id)
	s, err := scanSection(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("section", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByPage(ctx context.Context, pageID string) ([]*section.Section, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT "+sectionColumns+" FROM page_sections WHERE page_id = $1 ORDER BY position", pageID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("sections", err)
	}
	defer rows.Close()
	var out []*section.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("sections", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id string, content map[string]any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal section content: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE page_sections SET content = $1, updated_at = NOW() WHERE id = $2", raw, id)
	if err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cerr.NewError(cerr.NotFound, "section not found", nil)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	defer tx.Rollback()

	var pageID string
	var position int
	if err := tx.QueryRowxContext(ctx,
		"SELECT page_id, position FROM page_sections WHERE id = $1", id).
		Scan(&pageID, &position); err != nil {
		return cerr.WrapStorageReadError("section", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM page_sections WHERE id = $1", id); err != nil {
		return cerr.WrapStorageDeleteError("section", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE page_sections SET position = position - 1 WHERE page_id = $1 AND position > $2",
		pageID, position); err != nil {
		return cerr.WrapStorageWriteError("sections", err)
	}
	if err := tx.Commit(); err != nil {
		return cerr.WrapStorageWriteError("section", err)
	}
	return nil
}

func (r *PostgresRepository) Reorder(ctx context.Context, pageID string, orderedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return cerr.WrapStorageWriteError("sections", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM page_sections WHERE page_id = $1", pageID); err != nil {
		return cerr.WrapStorageReadError("sections", err)
	}
	if count != len(orderedIDs) {
		return cerr.NewError(cerr.InvalidArgument, "reorder must list every section of the page", nil)
	}
	for pos, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE page_sections SET position = $1, updated_at = NOW() WHERE id = $2 AND page_id = $3",
			pos, id, pageID)
		if err != nil {
			return cerr.WrapStorageWriteError("section", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return cerr.NewError(cerr.InvalidArgument, "reorder references a section outside the page", nil)
		}
	}
	if err := tx.Commit(); err != nil {
		return cerr.WrapStorageWriteError("sections", err)
	}
	return nil
}

func (r *PostgresRepository) AddVersion(ctx context.Context, v *section.Version) error {
	content, err := json.Marshal(v.Content)
	if err != nil {
		return fmt.Errorf("marshal version content: %w", err)
	}
	query, args, err := psql.Insert("section_versions").
		Columns("id", "section_id", "author", "content", "created_at").
		Values(v.ID, v.SectionID, v.Author, content, v.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build version insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return cerr.WrapStorageWriteError("section version", err)
	}
	return nil
}

func (r *PostgresRepository) ListVersions(ctx context.Context, sectionID string) ([]*section.Version, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT id, section_id, author, content, created_at FROM section_versions WHERE section_id = $1 ORDER BY created_at", sectionID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("section versions", err)
	}
	defer rows.Close()
	var out []*section.Version
	for rows.Next() {
		var v section.Version
		var content []byte
		if err := rows.Scan(&v.ID, &v.SectionID, &v.Author, &content, &v.CreatedAt); err != nil {
			return nil, cerr.WrapStorageReadError("section versions", err)
		}
		if len(content) > 0 {
			if err := json.Unmarshal(content, &v.Content); err != nil {
				return nil, fmt.Errorf("unmarshal version content: %w", err)
			}
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalSectionJSON(s *section.Section) (content, prompts, hints, source []byte, err error) {
	if content, err = json.Marshal(s.Content); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal section content: %w", err)
	}
	if prompts, err = json.Marshal(s.Prompts); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal section prompts: %w", err)
	}
	if hints, err = json.Marshal(s.AIHints); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal section ai hints: %w", err)
	}
	if s.CollectionSource != nil {
		if source, err = json.Marshal(s.CollectionSource); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal collection source: %w", err)
		}
	}
	return content, prompts, hints, source, nil
}

func scanSection(row rowScanner) (*section.Section, error) {
	var s section.Section
	var content, prompts, hints, source []byte
	if err := row.Scan(&s.ID, &s.PageID, &s.Type, &s.Variant, &s.Order,
		&content, &prompts, &hints, &source, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &s.Content); err != nil {
			return nil, fmt.Errorf("unmarshal section content: %w", err)
		}
	}
	if len(prompts) > 0 {
		if err := json.Unmarshal(prompts, &s.Prompts); err != nil {
			return nil, fmt.Errorf("unmarshal section prompts: %w", err)
		}
	}
	if len(hints) > 0 {
		if err := json.Unmarshal(hints, &s.AIHints); err != nil {
			return nil, fmt.Errorf("unmarshal section ai hints: %w", err)
		}
	}
	if len(source) > 0 {
		if err := json.Unmarshal(source, &s.CollectionSource); err != nil {
			return nil, fmt.Errorf("unmarshal collection source: %w", err)
		}
	}
	return &s, nil
}
