package usage

import (
	"context"
	"database/sql"
	"errors"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Get(ctx context.Context, userID string) (Record, error) {
	const query = `
SELECT to_char(day, 'YYYY-MM-DD'), used
FROM usage_daily
WHERE user_id = $1
ORDER BY day DESC
LIMIT 1`

	var rec Record
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&rec.Day, &rec.Used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, nil
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *pgStore) Increment(ctx context.Context, userID, day string) (Record, error) {
	const query = `
INSERT INTO usage_daily (user_id, day, used, updated_at)
VALUES ($1, $2::date, 1, now())
ON CONFLICT (user_id, day) DO UPDATE SET used = usage_daily.used + 1, updated_at = now()
RETURNING used`

	rec := Record{Day: day}
	if err := s.DB.QueryRowContext(ctx, query, userID, day).Scan(&rec.Used); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *pgStore) Reset(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM usage_daily WHERE user_id = $1`, userID)
	return err
}
