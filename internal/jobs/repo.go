package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error
	// UpdateProgress never moves progress backwards.
	UpdateProgress(ctx context.Context, jobID string, progress int) error
	MarkSucceeded(ctx context.Context, jobID, resultURL, resultName string, resultSize int64, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID, code, message string, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error)
}
