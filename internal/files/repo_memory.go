package files

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of FilesRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]File // userID -> files
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]File),
	}
}

// Create stores a file record for a user.
func (r *MemoryRepo) Create(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[f.UserID] = append(r.data[f.UserID], f)
	return nil
}

// GetByID returns a file by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, fileID string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.data[userID] {
		if f.ID == fileID {
			return f, nil
		}
	}
	return File{}, ErrNotFound
}

// GetByIDs returns the files matching fileIDs in the order requested.
func (r *MemoryRepo) GetByIDs(ctx context.Context, userID string, fileIDs []string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[string]File, len(r.data[userID]))
	for _, f := range r.data[userID] {
		byID[f.ID] = f
	}

	out := make([]File, 0, len(fileIDs))
	for _, id := range fileIDs {
		f, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = append(out, f)
	}
	return out, nil
}

// ListByUser returns files for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	userFiles := r.data[userID]
	r.mu.RUnlock()

	if len(userFiles) == 0 || offset >= len(userFiles) {
		return []File{}, nil
	}

	out := make([]File, len(userFiles))
	copy(out, userFiles)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return out[offset:end], nil
}
