package files

import "context"

// FilesRepo defines persistence operations for uploaded files.
type FilesRepo interface {
	Create(ctx context.Context, f File) error
	GetByID(ctx context.Context, userID, fileID string) (File, error)
	GetByIDs(ctx context.Context, userID string, fileIDs []string) ([]File, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]File, error)
}
