package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maauso/concepto-video-api/internal/generator"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS generation_jobs (
    id               TEXT PRIMARY KEY,
    vendor           TEXT NOT NULL,
    status           TEXT NOT NULL,
    request          JSONB NOT NULL,
    task_id          TEXT NOT NULL DEFAULT '',
    progress         INTEGER NOT NULL DEFAULT 0,
    attempts         INTEGER NOT NULL DEFAULT 0,
    vendor_video_url TEXT NOT NULL DEFAULT '',
    video_url        TEXT NOT NULL DEFAULT '',
    backup_url       TEXT NOT NULL DEFAULT '',
    error_message    TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    submitted_at     TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS generation_jobs_created_at_idx ON generation_jobs (created_at DESC);
`

const selectColumns = `id, vendor, status, request, task_id, progress, attempts, vendor_video_url,
video_url, backup_url, error_message, created_at, updated_at, submitted_at, completed_at`

// OpenPostgres creates a connection pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresRepository stores jobs in the generation_jobs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the jobs table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save inserts the job or overwrites the stored row.
func (r *PostgresRepository) Save(ctx context.Context, job *Job) error {
	j := job.Clone()

	request, err := json.Marshal(j.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	query := `
INSERT INTO generation_jobs (id, vendor, status, request, task_id, progress, attempts, vendor_video_url,
    video_url, backup_url, error_message, created_at, updated_at, submitted_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    task_id = EXCLUDED.task_id,
    progress = EXCLUDED.progress,
    attempts = EXCLUDED.attempts,
    vendor_video_url = EXCLUDED.vendor_video_url,
    video_url = EXCLUDED.video_url,
    backup_url = EXCLUDED.backup_url,
    error_message = EXCLUDED.error_message,
    updated_at = EXCLUDED.updated_at,
    submitted_at = EXCLUDED.submitted_at,
    completed_at = EXCLUDED.completed_at;
`
	_, err = r.pool.Exec(ctx, query,
		j.ID,
		string(j.Vendor),
		string(j.Status),
		request,
		j.TaskID,
		j.Progress,
		j.Attempts,
		j.VendorVideoURL,
		j.VideoURL,
		j.BackupURL,
		j.Error,
		j.CreatedAt,
		j.UpdatedAt,
		nullableTime(j.SubmittedAt),
		nullableTime(j.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// FindByID retrieves a job by its ID.
// Returns ErrJobNotFound if no row matches.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM generation_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("find job %s: %w", id, err)
	}
	return job, nil
}

// List returns all jobs, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM generation_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a job.
// Returns ErrJobNotFound if no row matches.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generation_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job                      Job
		vendor, status           string
		request                  []byte
		submittedAt, completedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&vendor,
		&status,
		&request,
		&job.TaskID,
		&job.Progress,
		&job.Attempts,
		&job.VendorVideoURL,
		&job.VideoURL,
		&job.BackupURL,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
		&submittedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	var req generator.Request
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("decode request of job %s: %w", job.ID, err)
	}
	job.Request = req
	job.Vendor = generator.Vendor(vendor)
	job.Status = Status(status)
	if submittedAt != nil {
		job.SubmittedAt = *submittedAt
	}
	if completedAt != nil {
		job.CompletedAt = *completedAt
	}
	return &job, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
