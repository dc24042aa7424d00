package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/radioforge/iqstream-core/internal/infrastructure/database"
	_ "github.com/radioforge/iqstream-core/migrations" // Register embedded migrations
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "iqstream.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return NewStore(db, "test-01")
}

func TestSessionRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx, TriggerBoot)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if id == "" {
		t.Fatal("Begin() returned empty session id")
	}

	if err := store.End(ctx, id, TriggerPause, 1500, 12); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	sessions, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Recent() returned %d sessions, want 1", len(sessions))
	}

	got := sessions[0]
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if got.ReceiverID != "test-01" {
		t.Errorf("ReceiverID = %q, want %q", got.ReceiverID, "test-01")
	}
	if got.StartTrigger != TriggerBoot {
		t.Errorf("StartTrigger = %q, want %q", got.StartTrigger, TriggerBoot)
	}
	if !got.StopTrigger.Valid || got.StopTrigger.String != TriggerPause {
		t.Errorf("StopTrigger = %+v, want %q", got.StopTrigger, TriggerPause)
	}
	if !got.EndedAt.Valid {
		t.Error("EndedAt not set after End()")
	}
	if got.ChunksPublished != 1500 || got.ChunksDropped != 12 {
		t.Errorf("counters = (%d, %d), want (1500, 12)", got.ChunksPublished, got.ChunksDropped)
	}
}

func TestEndUnknownSession(t *testing.T) {
	store := testStore(t)

	if err := store.End(context.Background(), "no-such-session", TriggerShutdown, 0, 0); err == nil {
		t.Error("End() on unknown session returned nil, want error")
	}
}

func TestRecordEvent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, "iqstream/control/test-01", "PAUSE", "pause"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := store.RecordEvent(ctx, "iqstream/control/test-01", "gibberish", "unknown"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
}

func TestTrackerLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var published, dropped uint64 = 42, 3
	tracker := NewTracker(store, Counters{
		Published: func() uint64 { return published },
		Dropped:   func() uint64 { return dropped },
	}, nil)

	tracker.Started(ctx, TriggerBoot)
	if tracker.Current() == "" {
		t.Fatal("Current() empty after Started")
	}

	tracker.Stopped(ctx, TriggerShutdown)
	if tracker.Current() != "" {
		t.Error("Current() not cleared after Stopped")
	}

	sessions, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Recent() returned %d sessions, want 1", len(sessions))
	}
	if sessions[0].ChunksPublished != 42 || sessions[0].ChunksDropped != 3 {
		t.Errorf("counters = (%d, %d), want (42, 3)",
			sessions[0].ChunksPublished, sessions[0].ChunksDropped)
	}

	// A stop with no open session is a harmless no-op.
	tracker.Stopped(ctx, TriggerShutdown)
}
