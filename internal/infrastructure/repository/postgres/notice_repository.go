package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const noticeColumns = `id, title, url, body, COALESCE(summary, ''), COALESCE(department, ''), audience_grade,
	COALESCE(category, ''), COALESCE(source, ''), tags, posted_at, deadline_at, created_at, updated_at`

type NoticeRepository struct {
	db *sql.DB
}

func NewNoticeRepository(db *sql.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *NoticeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS notices (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	body TEXT NOT NULL,
	summary TEXT,
	department TEXT,
	audience_grade JSONB NOT NULL DEFAULT '[]'::jsonb,
	category TEXT,
	source TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	content_hash TEXT NOT NULL UNIQUE,
	posted_at TIMESTAMPTZ NOT NULL,
	deadline_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notices_department ON notices(department);
CREATE INDEX IF NOT EXISTS idx_notices_audience_grade ON notices USING GIN (audience_grade);
CREATE INDEX IF NOT EXISTS idx_notices_posted_at ON notices(posted_at DESC);
CREATE INDEX IF NOT EXISTS idx_notices_deadline_at ON notices(deadline_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*domain.Notice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id = $1`, id)

	notice, err := scanNotice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNoticeNotFound, "get notice", fmt.Errorf("id=%s", id))
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "get notice", err)
	}
	return notice, nil
}

// FindByIDs returns the notices that exist, in no particular order.
func (r *NoticeRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Notice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids))
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := `SELECT ` + noticeColumns + ` FROM notices WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	return r.queryNotices(ctx, "find notices by id", query, args...)
}

// FindByKeywords matches any term as a case-insensitive substring of title,
// summary or body. Department and grade filters are exact; newest first.
func (r *NoticeRepository) FindByKeywords(ctx context.Context, q domain.KeywordQuery) ([]domain.Notice, error) {
	var (
		args    []any
		clauses []string
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Terms) > 0 {
		ors := make([]string, 0, len(q.Terms))
		for _, term := range q.Terms {
			p := next("%" + escapeLike(term) + "%")
			ors = append(ors, fmt.Sprintf(`title ILIKE %[1]s ESCAPE '\' OR COALESCE(summary, '') ILIKE %[1]s ESCAPE '\' OR body ILIKE %[1]s ESCAPE '\'`, p))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if q.Filter.Department != "" {
		clauses = append(clauses, "department = "+next(q.Filter.Department))
	}
	if q.Filter.Grade != "" {
		clauses = append(clauses, "audience_grade @> jsonb_build_array("+next(q.Filter.Grade)+"::text)")
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + noticeColumns + ` FROM notices`)
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY posted_at DESC")
	if q.Limit > 0 {
		query.WriteString(" LIMIT " + next(q.Limit))
	}

	return r.queryNotices(ctx, "find notices by keyword", query.String(), args...)
}

func (r *NoticeRepository) queryNotices(ctx context.Context, op, query string, args ...any) ([]domain.Notice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, op, err)
	}
	defer rows.Close()

	out := make([]domain.Notice, 0)
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStoreUnavailable, op, err)
		}
		out = append(out, *notice)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotice(s scanner) (*domain.Notice, error) {
	var (
		notice   domain.Notice
		gradeRaw []byte
		tagsRaw  []byte
		deadline sql.NullTime
	)
	err := s.Scan(
		&notice.ID, &notice.Title, &notice.URL, &notice.Body, &notice.Summary, &notice.Department, &gradeRaw,
		&notice.Category, &notice.Source, &tagsRaw, &notice.PostedAt, &deadline, &notice.CreatedAt, &notice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalStrings(gradeRaw, &notice.AudienceGrade); err != nil {
		return nil, fmt.Errorf("unmarshal audience_grade: %w", err)
	}
	if err := unmarshalStrings(tagsRaw, &notice.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if deadline.Valid {
		t := deadline.Time
		notice.DeadlineAt = &t
	}
	return &notice, nil
}

func unmarshalStrings(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = []string{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
