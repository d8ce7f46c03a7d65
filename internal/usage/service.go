package usage

import (
	"context"
	"time"

	"fileforge-backend/internal/shared/telemetry"
)

const dayFormat = "2006-01-02"

type store interface {
	Get(ctx context.Context, userID string) (Record, error)
	Increment(ctx context.Context, userID, day string) (Record, error)
	Reset(ctx context.Context, userID string) error
}

// Service is the daily usage gate. It counts completed conversions per user
// per UTC day and reports whether a new one may start. The gate fails open:
// a store error is logged and treated as allowed, never as a block.
type Service struct {
	store store
	limit int
	now   func() time.Time
}

// NewService constructs a Service with an in-memory store.
func NewService(limit int) *Service {
	return &Service{store: newMemoryStore(), limit: limit, now: time.Now}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store, limit int) *Service {
	return &Service{store: pgStore, limit: limit, now: time.Now}
}

func (s *Service) today() string {
	return s.now().UTC().Format(dayFormat)
}

// Limit returns the configured daily cap. Zero or negative means unlimited.
func (s *Service) Limit() int {
	return s.limit
}

// Allowed reports whether the user may start another conversion today. It
// never mutates the record.
func (s *Service) Allowed(ctx context.Context, userID string) bool {
	if s.limit <= 0 {
		return true
	}
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		telemetry.Warn("usage check failed, allowing", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return true
	}
	if rec.Day != s.today() {
		return true
	}
	return rec.Used < s.limit
}

// Snapshot returns today's usage for display. A stale record counts as zero.
func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	today := s.today()
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	used := 0
	if rec.Day == today {
		used = rec.Used
	}
	remaining := s.limit - used
	if s.limit <= 0 {
		remaining = -1
	} else if remaining < 0 {
		remaining = 0
	}
	return Snapshot{Day: today, Used: used, Limit: s.limit, Remaining: remaining}, nil
}

// Increment records one completed conversion for today. Records from earlier
// days reset to zero before counting.
func (s *Service) Increment(ctx context.Context, userID string) (Record, error) {
	return s.store.Increment(ctx, userID, s.today())
}

// Reset clears the user's usage. Dev environments only.
func (s *Service) Reset(ctx context.Context, userID string) error {
	return s.store.Reset(ctx, userID)
}
