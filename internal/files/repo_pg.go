package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements FilesRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new file record.
func (r *PGRepo) Create(ctx context.Context, f File) error {
	const query = `
INSERT INTO files (id, user_id, file_name, mime_type, size_bytes, storage_key, page_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var pageCount sql.NullInt32
	if f.PageCount > 0 {
		pageCount = sql.NullInt32{Int32: int32(f.PageCount), Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		f.ID,
		f.UserID,
		f.FileName,
		f.MimeType,
		f.SizeBytes,
		f.StorageKey,
		pageCount,
		f.CreatedAt,
	)
	return err
}

// GetByID returns a file by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, fileID string) (File, error) {
	const query = `
SELECT id, user_id, file_name, mime_type, size_bytes, storage_key, page_count, created_at
FROM files
WHERE user_id = $1 AND id = $2`

	f, err := scanFile(r.DB.QueryRowContext(ctx, query, userID, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

// GetByIDs returns the files matching fileIDs in the order requested.
func (r *PGRepo) GetByIDs(ctx context.Context, userID string, fileIDs []string) ([]File, error) {
	out := make([]File, 0, len(fileIDs))
	for _, id := range fileIDs {
		f, err := r.GetByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ListByUser returns files for a user, newest first, honoring limit/offset.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	const query = `
SELECT id, user_id, file_name, mime_type, size_bytes, storage_key, page_count, created_at
FROM files
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

	out := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (File, error) {
	var f File
	var mimeType sql.NullString
	var pageCount sql.NullInt32
	if err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.FileName,
		&mimeType,
		&f.SizeBytes,
		&f.StorageKey,
		&pageCount,
		&f.CreatedAt,
	); err != nil {
		return File{}, err
	}
	if mimeType.Valid {
		f.MimeType = mimeType.String
	}
	if pageCount.Valid {
		f.PageCount = int(pageCount.Int32)
	}
	return f, nil
}
