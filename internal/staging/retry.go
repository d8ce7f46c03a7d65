package staging

import (
	"context"
	"errors"

	"fileforge-backend/internal/shared/telemetry"
)

// retryStager attempts the primary transport once and, on failure, falls back
// to the conservative transport for a single retry. Size-limit violations
// never retry since no transport can carry the file.
type retryStager struct {
	primary  Stager
	fallback Stager
}

// WithRetry wraps primary so that a failed stage is retried once on fallback.
// When fallback is nil the primary itself is retried.
func WithRetry(primary, fallback Stager) Stager {
	if fallback == nil {
		fallback = primary
	}
	return &retryStager{primary: primary, fallback: fallback}
}

func (s *retryStager) Stage(ctx context.Context, src Source, onProgress ProgressFunc) (string, error) {
	url, err := s.primary.Stage(ctx, src, onProgress)
	if err == nil {
		return url, nil
	}
	if errors.Is(err, ErrFileTooLarge) || ctx.Err() != nil {
		return "", err
	}
	telemetry.Warn("staging retry after failed attempt", map[string]any{
		"file":  src.Name,
		"error": err.Error(),
	})
	url, retryErr := s.fallback.Stage(ctx, src, onProgress)
	if retryErr != nil {
		// Surface the retry's error; the first attempt is already logged.
		return "", retryErr
	}
	return url, nil
}
