package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pagemotion/internal/jobs"
	apperrors "pagemotion/internal/pkg/errors"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS job_status (
		job_id     TEXT NOT NULL,
		kind       TEXT NOT NULL,
		status     TEXT NOT NULL,
		code       TEXT NOT NULL DEFAULT '',
		message    TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (job_id, kind)
	)
`

// Postgres stores entries in PostgreSQL.
type Postgres struct {
	db *pgxpool.Pool
}

// OpenPostgres connects to dsn and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, postgresSchema)
	return err
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	err := p.upsert(ctx, e)
	if IsUndefinedTable(err) {
		if err := p.EnsureSchema(ctx); err != nil {
			return err
		}
		err = p.upsert(ctx, e)
	}
	return err
}

func (p *Postgres) upsert(ctx context.Context, e Entry) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO job_status (job_id, kind, status, code, message, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (job_id, kind) DO UPDATE
		SET status=EXCLUDED.status, code=EXCLUDED.code, message=EXCLUDED.message, updated_at=EXCLUDED.updated_at
	`, e.JobID, string(e.Kind), string(e.Status), e.Code, e.Message, e.UpdatedAt)
	return err
}

func (p *Postgres) Get(ctx context.Context, jobID string) ([]Entry, error) {
	rows, err := p.db.Query(ctx, `
		SELECT job_id, kind, status, code, message, updated_at
		FROM job_status
		WHERE job_id=$1
		ORDER BY kind
	`, jobID)
	if err != nil {
		if IsUndefinedTable(err) {
			return nil, apperrors.NotFound("job", jobID)
		}
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e            Entry
			kind, status string
		)
		if err := rows.Scan(&e.JobID, &kind, &status, &e.Code, &e.Message, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Kind, e.Status = jobs.Kind(kind), jobs.Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperrors.NotFound("job", jobID)
	}
	return out, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

// IsUndefinedTable reports a PostgreSQL undefined_table error (42P01).
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}
