package session

import (
	"context"
	"sync"
)

// Logger defines the logging interface for the tracker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Counters supplies the lifetime chunk totals snapshotted when a
// session ends. The funcs are read on transitions only, never on the
// data path.
type Counters struct {
	Published func() uint64
	Dropped   func() uint64
}

// Tracker maintains the current capture session across transitions.
//
// It is the glue between the control dispatcher (which knows when the
// stream starts and stops) and the Store (which persists it). Ledger
// failures are logged and swallowed: a broken database must never
// block or fail a stream transition.
type Tracker struct {
	store    *Store
	counters Counters
	logger   Logger

	mu      sync.Mutex
	current string
}

// NewTracker creates a tracker over the given store.
//
// Parameters:
//   - store: Session ledger
//   - counters: Chunk counter sources snapshotted at session end
//   - logger: Diagnostics sink; nil for none
//
// Returns:
//   - *Tracker: Ready for use
func NewTracker(store *Store, counters Counters, logger Logger) *Tracker {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Tracker{
		store:    store,
		counters: counters,
		logger:   logger,
	}
}

// Started records the start of a session and remembers its id.
func (t *Tracker) Started(ctx context.Context, trigger string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, err := t.store.Begin(ctx, trigger)
	if err != nil {
		t.logger.Warn("session ledger write failed", "error", err)
		return
	}
	t.current = id
	t.logger.Debug("capture session started", "session_id", id, "trigger", trigger)
}

// Stopped closes the current session with a counter snapshot. A stop
// without a matching start is a no-op.
func (t *Tracker) Stopped(ctx context.Context, trigger string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == "" {
		return
	}

	var published, dropped uint64
	if t.counters.Published != nil {
		published = t.counters.Published()
	}
	if t.counters.Dropped != nil {
		dropped = t.counters.Dropped()
	}

	if err := t.store.End(ctx, t.current, trigger, published, dropped); err != nil {
		t.logger.Warn("session ledger write failed", "error", err)
	} else {
		t.logger.Debug("capture session ended",
			"session_id", t.current,
			"trigger", trigger,
			"chunks_published", published,
			"chunks_dropped", dropped,
		)
	}
	t.current = ""
}

// Event records one control-topic message.
func (t *Tracker) Event(ctx context.Context, topic, payload, action string) {
	if err := t.store.RecordEvent(ctx, topic, payload, action); err != nil {
		t.logger.Warn("control event ledger write failed", "error", err)
	}
}

// Current returns the active session id, or "" when no session is open.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
