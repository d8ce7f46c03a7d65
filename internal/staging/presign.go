package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fileforge-backend/internal/shared/storage/object"
)

const defaultPresignTTL = 15 * time.Minute

// PresignStager hands the engine a short-lived URL straight into the object
// store instead of re-uploading the bytes. Only usable when the store can
// mint presigned URLs the engine can reach.
type PresignStager struct {
	presigner object.Presigner
	maxBytes  int64
	ttl       time.Duration
}

func NewPresignStager(presigner object.Presigner, maxBytes int64, ttl time.Duration) (*PresignStager, error) {
	if presigner == nil {
		return nil, errors.New("staging: presigner is required")
	}
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &PresignStager{presigner: presigner, maxBytes: maxBytes, ttl: ttl}, nil
}

func (s *PresignStager) Stage(ctx context.Context, src Source, onProgress ProgressFunc) (string, error) {
	if s.maxBytes > 0 && src.Size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, src.Size)
	}
	url, err := s.presigner.PresignGet(ctx, src.Key, s.ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", src.Key, err)
	}
	// No bytes move through this process, so progress completes at once.
	if onProgress != nil && src.Size > 0 {
		onProgress(src.Size, src.Size)
	}
	return url, nil
}
