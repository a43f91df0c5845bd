package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/resona/api/internal/model"
)

// ErrNotFound is returned when a job does not exist for the given owner.
// Ownership misses are indistinguishable from missing rows on purpose.
var ErrNotFound = errors.New("job not found")

const jobColumns = `id, owner_id, kind, provider, provider_job_id, status, progress,
	title, input_params, output_url, output_stored, voice_id, preview_url,
	error, is_favorite, source_job_id, created_at`

// CreateJob inserts a new job row.
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	params, err := json.Marshal(job.InputParams)
	if err != nil {
		return fmt.Errorf("failed to marshal input params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, owner_id, kind, provider, provider_job_id, status,
			progress, title, input_params, output_url, output_stored, voice_id,
			preview_url, error, is_favorite, source_job_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, job.Kind, job.Provider, job.ProviderJobID, job.Status,
		job.Progress, job.Title, string(params), job.OutputURL, job.OutputStored,
		job.VoiceID, job.PreviewURL, job.Error, job.IsFavorite, job.SourceJobID,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job scoped to its owner.
func (s *Store) GetJob(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND owner_id = ?`,
		jobID, ownerID,
	)
	return scanJob(row)
}

// ListJobs returns the owner's jobs most-recent-first, honoring the filter.
func (s *Store) ListJobs(ctx context.Context, ownerID string, filter model.ListFilter) ([]*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE owner_id = ?`
	args := []interface{}{ownerID}

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite = 1`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryJobs(ctx, query, args...)
}

// CountJobs returns the total matching jobs ignoring the limit.
func (s *Store) CountJobs(ctx context.Context, ownerID string, filter model.ListFilter) (int, error) {
	query := `SELECT COUNT(*) FROM jobs WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if filter.FavoritesOnly {
		query += ` AND is_favorite = 1`
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListActiveJobs returns the owner's non-terminal jobs, oldest first, so the
// poller checks them in submission order.
func (s *Store) ListActiveJobs(ctx context.Context, ownerID string) ([]*model.Job, error) {
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE owner_id = ? AND status IN (?, ?)
		 ORDER BY created_at ASC`,
		ownerID, model.JobStatusPending, model.JobStatusProcessing,
	)
}

// UpdateProgress performs the narrow processing-state write: status and
// progress only. Terminal rows are never touched by this path.
func (s *Store) UpdateProgress(ctx context.Context, ownerID, jobID string, status model.JobStatus, progress int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = ?
		WHERE id = ? AND owner_id = ? AND status NOT IN (?, ?)`,
		status, progress, jobID, ownerID,
		model.JobStatusCompleted, model.JobStatusFailed,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CompleteJob transitions a job to completed with its output reference.
func (s *Store) CompleteJob(ctx context.Context, ownerID, jobID string, outputURL string, stored bool, voiceID, previewURL *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = 100, output_url = ?,
			output_stored = ?, voice_id = ?, preview_url = ?, error = NULL
		WHERE id = ? AND owner_id = ? AND status NOT IN (?, ?)`,
		model.JobStatusCompleted, outputURL, stored, voiceID, previewURL,
		jobID, ownerID, model.JobStatusCompleted, model.JobStatusFailed,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// FailJob transitions a job to failed with the provider's reason.
func (s *Store) FailJob(ctx context.Context, ownerID, jobID, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?
		WHERE id = ? AND owner_id = ? AND status NOT IN (?, ?)`,
		model.JobStatusFailed, errMsg, jobID, ownerID,
		model.JobStatusCompleted, model.JobStatusFailed,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetOutput swaps the output reference after a durable-storage migration.
// Not a status change; only completed jobs qualify.
func (s *Store) SetOutput(ctx context.Context, ownerID, jobID, outputURL string, stored bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET output_url = ?, output_stored = ?
		WHERE id = ? AND owner_id = ? AND status = ?`,
		outputURL, stored, jobID, ownerID, model.JobStatusCompleted,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, ownerID, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET is_favorite = 1 - is_favorite
		WHERE id = ? AND owner_id = ?`,
		jobID, ownerID,
	)
	if err != nil {
		return false, err
	}
	if err := requireRow(res); err != nil {
		return false, err
	}

	var fav bool
	err = s.db.QueryRowContext(ctx,
		`SELECT is_favorite FROM jobs WHERE id = ? AND owner_id = ?`,
		jobID, ownerID,
	).Scan(&fav)
	return fav, err
}

// DeleteJob removes the local record only; the provider-side job, if still
// running, continues unobserved.
func (s *Store) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = ? AND owner_id = ?`,
		jobID, ownerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*model.Job, error) {
	var job model.Job
	var params string
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.Kind, &job.Provider, &job.ProviderJobID,
		&job.Status, &job.Progress, &job.Title, &params, &job.OutputURL,
		&job.OutputStored, &job.VoiceID, &job.PreviewURL, &job.Error,
		&job.IsFavorite, &job.SourceJobID, &job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &job.InputParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input params: %w", err)
	}
	return &job, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
