package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkovalev/novel-translate-back/internal/domain"
)

// PostgresRegistry keeps job state in Postgres so several API instances can
// serve polls for jobs coordinated elsewhere.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresRegistry{pool: pool}, nil
}

func (r *PostgresRegistry) Close() {
	r.pool.Close()
}

func (r *PostgresRegistry) Create(ctx context.Context, job *domain.Job) error {
	segments, results, err := encodeJobState(job)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO translation_jobs (
			id,
			filename,
			instructions,
			source_lang,
			target_lang,
			segments,
			results,
			status,
			completed_count,
			total_count,
			result,
			error_message,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		job.ID,
		job.Filename,
		job.Instructions,
		job.SourceLang,
		job.TargetLang,
		segments,
		results,
		string(job.Status),
		job.CompletedCount,
		job.TotalCount,
		job.Result,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	var (
		job      domain.Job
		status   string
		segments []byte
		results  []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, filename, instructions, source_lang, target_lang,
		       segments, results, status, completed_count, total_count,
		       result, error_message, created_at, updated_at
		FROM translation_jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID,
		&job.Filename,
		&job.Instructions,
		&job.SourceLang,
		&job.TargetLang,
		&segments,
		&results,
		&status,
		&job.CompletedCount,
		&job.TotalCount,
		&job.Result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal(segments, &job.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	job.Results = make(map[int]string)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}
	return &job, nil
}

func (r *PostgresRegistry) Update(ctx context.Context, job *domain.Job) error {
	segments, results, err := encodeJobState(job)
	if err != nil {
		return err
	}

	command, err := r.pool.Exec(ctx, `
		UPDATE translation_jobs
		SET segments = $2,
			results = $3,
			status = $4,
			completed_count = $5,
			result = $6,
			error_message = $7,
			updated_at = $8
		WHERE id = $1
	`,
		job.ID,
		segments,
		results,
		string(job.Status),
		job.CompletedCount,
		job.Result,
		job.ErrorMessage,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) Remove(ctx context.Context, jobID string) error {
	command, err := r.pool.Exec(ctx, `DELETE FROM translation_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) Evict(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	command, err := r.pool.Exec(ctx, `
		DELETE FROM translation_jobs
		WHERE updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict jobs: %w", err)
	}
	return int(command.RowsAffected()), nil
}

func encodeJobState(job *domain.Job) ([]byte, []byte, error) {
	segments, err := json.Marshal(job.Segments)
	if err != nil {
		return nil, nil, fmt.Errorf("encode segments: %w", err)
	}
	results, err := json.Marshal(job.Results)
	if err != nil {
		return nil, nil, fmt.Errorf("encode results: %w", err)
	}
	return segments, results, nil
}
