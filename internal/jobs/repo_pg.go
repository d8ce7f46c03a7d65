package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (
    id, user_id, view, sub_tool, operation, parameters, file_ids, status, progress, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	params := job.Parameters
	if params == nil {
		params = map[string]string{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	fileIDs, err := json.Marshal(job.FileIDs)
	if err != nil {
		return fmt.Errorf("marshal file ids: %w", err)
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		job.ID,
		job.UserID,
		job.View,
		job.SubTool,
		job.Operation,
		paramsJSON,
		fileIDs,
		job.Status,
		job.Progress,
		job.CreatedAt,
	)
	return err
}

// GetByID returns a job by its ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, user_id, view, sub_tool, operation, parameters, file_ids, status, progress,
       result_url, result_name, result_size, error_code, error_message,
       started_at, completed_at, created_at, updated_at
FROM jobs
WHERE id = $1`

	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// UpdateStatus sets the job status and optional start timestamp.
func (r *PGRepo) UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error {
	const query = `
UPDATE jobs
SET status = $2, started_at = COALESCE($3, started_at), updated_at = now()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, jobID, status, startedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateProgress raises the job progress, never lowering it.
func (r *PGRepo) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	const query = `
UPDATE jobs
SET progress = GREATEST(progress, $2), updated_at = now()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, jobID, progress)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkSucceeded records the result artifact and completes the job.
func (r *PGRepo) MarkSucceeded(ctx context.Context, jobID, resultURL, resultName string, resultSize int64, completedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = $2, progress = 100, result_url = $3, result_name = $4, result_size = $5,
    completed_at = $6, updated_at = now()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, jobID, StatusSucceeded, resultURL, resultName, resultSize, completedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkFailed records the failure reason and completes the job.
func (r *PGRepo) MarkFailed(ctx context.Context, jobID, code, message string, completedAt time.Time) error {
	const query = `
UPDATE jobs
SET status = $2, error_code = $3, error_message = $4, completed_at = $5, updated_at = now()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, jobID, StatusFailed, code, message, completedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListByUser returns jobs for a user, newest first, with limit/offset.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	const query = `
SELECT id, user_id, view, sub_tool, operation, parameters, file_ids, status, progress,
       result_url, result_name, result_size, error_code, error_message,
       started_at, completed_at, created_at, updated_at
FROM jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var operation, resultURL, resultName, errorCode, errorMessage sql.NullString
	var resultSize sql.NullInt64
	var parameters, fileIDs []byte
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.View,
		&job.SubTool,
		&operation,
		&parameters,
		&fileIDs,
		&job.Status,
		&job.Progress,
		&resultURL,
		&resultName,
		&resultSize,
		&errorCode,
		&errorMessage,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}

	if len(parameters) > 0 {
		if err := json.Unmarshal(parameters, &job.Parameters); err != nil {
			return Job{}, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if len(fileIDs) > 0 {
		if err := json.Unmarshal(fileIDs, &job.FileIDs); err != nil {
			return Job{}, fmt.Errorf("unmarshal file ids: %w", err)
		}
	}
	if operation.Valid {
		job.Operation = operation.String
	}
	if resultURL.Valid {
		job.ResultURL = resultURL.String
	}
	if resultName.Valid {
		job.ResultName = resultName.String
	}
	if resultSize.Valid {
		job.ResultSize = resultSize.Int64
	}
	if errorCode.Valid {
		job.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		job.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}
