package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedDay(day string) func() time.Time {
	t, _ := time.Parse(dayFormat, day)
	return func() time.Time { return t }
}

func TestAllowedUntilLimit(t *testing.T) {
	svc := NewService(5)
	svc.now = fixedDay("2026-08-31")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !svc.Allowed(ctx, "u1") {
			t.Fatalf("expected allowed at %d used", i)
		}
		if _, err := svc.Increment(ctx, "u1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	if svc.Allowed(ctx, "u1") {
		t.Fatalf("expected blocked after 5 conversions")
	}
}

func TestAllowedDoesNotMutate(t *testing.T) {
	svc := NewService(5)
	svc.now = fixedDay("2026-08-31")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		svc.Allowed(ctx, "u1")
	}

	snap, err := svc.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Used != 0 {
		t.Fatalf("expected 0 used after checks only, got %d", snap.Used)
	}
}

func TestStaleDayResets(t *testing.T) {
	svc := NewService(5)
	svc.now = fixedDay("2026-08-30")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Increment(ctx, "u1")
	}
	if svc.Allowed(ctx, "u1") {
		t.Fatalf("expected blocked on the same day")
	}

	// Next UTC day the gate opens again and the counter restarts.
	svc.now = fixedDay("2026-08-31")
	if !svc.Allowed(ctx, "u1") {
		t.Fatalf("expected allowed after day rollover")
	}
	rec, err := svc.Increment(ctx, "u1")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if rec.Day != "2026-08-31" || rec.Used != 1 {
		t.Fatalf("expected fresh record for new day, got %+v", rec)
	}
}

func TestSnapshotRemaining(t *testing.T) {
	svc := NewService(5)
	svc.now = fixedDay("2026-08-31")
	ctx := context.Background()

	svc.Increment(ctx, "u1")
	svc.Increment(ctx, "u1")

	snap, err := svc.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Used != 2 || snap.Remaining != 3 || snap.Limit != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestUnlimitedWhenNoLimit(t *testing.T) {
	svc := NewService(0)
	svc.now = fixedDay("2026-08-31")
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		svc.Increment(ctx, "u1")
	}
	if !svc.Allowed(ctx, "u1") {
		t.Fatalf("expected allowed with no limit configured")
	}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, userID string) (Record, error) {
	return Record{}, errors.New("connection refused")
}

func (failingStore) Increment(ctx context.Context, userID, day string) (Record, error) {
	return Record{}, errors.New("connection refused")
}

func (failingStore) Reset(ctx context.Context, userID string) error {
	return errors.New("connection refused")
}

func TestGateFailsOpen(t *testing.T) {
	svc := NewPostgresService(failingStore{}, 5)
	if !svc.Allowed(context.Background(), "u1") {
		t.Fatalf("expected fail-open when the store errors")
	}
}

func TestResetClears(t *testing.T) {
	svc := NewService(5)
	svc.now = fixedDay("2026-08-31")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Increment(ctx, "u1")
	}
	if err := svc.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !svc.Allowed(ctx, "u1") {
		t.Fatalf("expected allowed after reset")
	}
}
