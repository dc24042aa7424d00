package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radioforge/iqstream-core/internal/infrastructure/database"
)

// Trigger values recorded with session transitions and control events.
const (
	TriggerBoot       = "boot"
	TriggerResume     = "resume"
	TriggerPause      = "pause"
	TriggerShutdown   = "shutdown"
	TriggerDriverExit = "driver_exit"
)

// writeTimeout bounds ledger writes so a locked database cannot stall
// the caller (the control dispatcher runs on the MQTT network goroutine).
const writeTimeout = 2 * time.Second

// Session is one recorded span of active capture.
type Session struct {
	ID              string
	ReceiverID      string
	StartedAt       time.Time
	EndedAt         sql.NullTime
	StartTrigger    string
	StopTrigger     sql.NullString
	ChunksPublished uint64
	ChunksDropped   uint64
}

// Store persists capture sessions and control events to SQLite.
//
// The ledger is best-effort operator visibility, not a delivery record:
// writes happen only on state transitions and inbound commands, never
// on the data path.
type Store struct {
	db         *database.DB
	receiverID string
}

// NewStore creates a ledger store for the given receiver.
//
// Parameters:
//   - db: Open database with migrations applied
//   - receiverID: The device.id this process captures for
//
// Returns:
//   - *Store: Ready for use
func NewStore(db *database.DB, receiverID string) *Store {
	return &Store{
		db:         db,
		receiverID: receiverID,
	}
}

// Begin records the start of a capture session.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - trigger: What started the session (TriggerBoot or TriggerResume)
//
// Returns:
//   - string: The new session id (UUID)
//   - error: If the insert fails
func (s *Store) Begin(ctx context.Context, trigger string) (string, error) {
	id := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO capture_sessions (id, receiver_id, started_at, start_trigger)
		 VALUES (?, ?, ?, ?)`,
		id, s.receiverID, time.Now().UTC(), trigger,
	)
	if err != nil {
		return "", fmt.Errorf("recording session start: %w", err)
	}
	return id, nil
}

// End records the end of a capture session along with the chunk
// counters observed at stop time.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - id: Session id returned by Begin
//   - trigger: What ended the session (TriggerPause, TriggerShutdown, TriggerDriverExit)
//   - published: Total chunks delivered during the process lifetime
//   - dropped: Total chunks dropped during the process lifetime
//
// Returns:
//   - error: If the update fails or the session is unknown
func (s *Store) End(ctx context.Context, id, trigger string, published, dropped uint64) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE capture_sessions
		 SET ended_at = ?, stop_trigger = ?, chunks_published = ?, chunks_dropped = ?
		 WHERE id = ?`,
		time.Now().UTC(), trigger, published, dropped, id,
	)
	if err != nil {
		return fmt.Errorf("recording session end: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording session end: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("recording session end: unknown session %s", id)
	}
	return nil
}

// RecordEvent appends one inbound control-topic event to the ledger.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - topic: Topic the command arrived on
//   - payload: Raw command payload
//   - action: What the dispatcher did ("pause", "resume", "ignored", "unknown")
//
// Returns:
//   - error: If the insert fails
func (s *Store) RecordEvent(ctx context.Context, topic, payload, action string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO control_events (received_at, topic, payload, action)
		 VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), topic, payload, action,
	)
	if err != nil {
		return fmt.Errorf("recording control event: %w", err)
	}
	return nil
}

// Recent returns the most recent sessions, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - limit: Maximum rows to return
//
// Returns:
//   - []Session: Sessions ordered by start time descending
//   - error: If the query fails
func (s *Store) Recent(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receiver_id, started_at, ended_at, start_trigger, stop_trigger,
		        chunks_published, chunks_dropped
		 FROM capture_sessions
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID, &sess.ReceiverID, &sess.StartedAt, &sess.EndedAt,
			&sess.StartTrigger, &sess.StopTrigger,
			&sess.ChunksPublished, &sess.ChunksDropped,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
