package control

import (
	"context"
	"sync"

	"github.com/radioforge/iqstream-core/internal/capture"
	"github.com/radioforge/iqstream-core/internal/state"
)

// Action values recorded for each handled control message.
const (
	actionPause        = "pause"
	actionResume       = "resume"
	actionResumeFailed = "resume_failed"
	actionIgnored      = "ignored"
	actionUnknown      = "unknown"
)

// SessionTracker receives the session transitions and control events
// the dispatcher produces. Implementations log their own failures; the
// dispatcher never fails a command because the ledger is unavailable.
type SessionTracker interface {
	// Started records that capture began.
	Started(ctx context.Context, trigger string)

	// Stopped records that capture ended.
	Stopped(ctx context.Context, trigger string)

	// Event records one inbound control message and its outcome.
	Event(ctx context.Context, topic, payload, action string)
}

// Logger defines the logging interface for the dispatcher.
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

// Dispatcher translates control-topic messages into capture state
// transitions.
//
// The stream is a two-state machine (Streaming / Stopped) and the
// dispatcher is its only driver: PAUSE moves Streaming to Stopped,
// RESUME moves Stopped to Streaming, and a command that matches the
// current state is acknowledged as a no-op. A mutex serializes
// transitions so overlapping deliveries cannot interleave a stop with
// a start.
//
// Failure is contained per command: a driver error is logged and the
// dispatcher keeps serving later commands.
type Dispatcher struct {
	driver  capture.Driver
	sample  capture.SampleFunc
	state   *state.State
	logger  Logger
	tracker SessionTracker

	mu sync.Mutex
}

// New creates a control dispatcher.
//
// Parameters:
//   - driver: Capture device to start and stop
//   - sample: Callback handed to the driver on RESUME
//   - st: Shared lifecycle state; the dispatcher owns its streaming flag
//   - logger: Diagnostics sink; nil for none
//
// Returns:
//   - *Dispatcher: Ready to register as a message handler
func New(driver capture.Driver, sample capture.SampleFunc, st *state.State, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		driver: driver,
		sample: sample,
		state:  st,
		logger: logger,
	}
}

// SetTracker attaches a session ledger. Optional; a nil tracker means
// transitions are not persisted.
func (d *Dispatcher) SetTracker(tracker SessionTracker) {
	d.tracker = tracker
}

// HandleMessage processes one control-topic message. It satisfies
// mqtt.MessageHandler and is safe for concurrent delivery.
//
// Unknown payloads are logged and recorded, never acted on. The
// returned error is always nil: every command outcome, including a
// failed driver transition, is handled here rather than escalated to
// the transport layer.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	cmd := Parse(payload)

	d.mu.Lock()
	var action string
	switch cmd {
	case CommandPause:
		action = d.pause()
	case CommandResume:
		action = d.resume()
	default:
		d.logger.Warn("unknown control payload ignored",
			"topic", topic,
			"payload", string(payload),
		)
		action = actionUnknown
	}
	d.mu.Unlock()

	if d.tracker != nil {
		d.tracker.Event(context.Background(), topic, string(payload), action)
	}
	return nil
}

// pause stops the driver if the stream is active. Called with d.mu held.
//
// The gate acts when either the intent flag or the device reports
// streaming: if the two disagree (a failed stop left the device
// running, or the device died before the exit handler caught up),
// PAUSE converges them rather than no-opping.
//
// A stop failure still moves the state machine to Stopped: the device
// may be wedged, but production has to halt either way, and RESUME
// remains available to attempt a fresh start.
func (d *Dispatcher) pause() string {
	if !d.state.Streaming() && !d.driver.IsStreaming() {
		d.logger.Info("pause ignored, stream already stopped")
		return actionIgnored
	}

	if err := d.driver.Stop(); err != nil {
		d.logger.Error("pause: driver stop failed", "error", err)
	} else {
		d.logger.Info("stream paused")
	}

	d.state.SetStreaming(false)
	if d.tracker != nil {
		d.tracker.Stopped(context.Background(), "pause")
	}
	return actionPause
}

// resume starts the driver if the stream is stopped. Called with d.mu
// held.
func (d *Dispatcher) resume() string {
	if d.state.Streaming() || d.driver.IsStreaming() {
		d.logger.Info("resume ignored, stream already active")
		return actionIgnored
	}

	// Mark the stream live before starting the driver: the producer
	// refuses blocks while the flag is down, and the first block can
	// arrive before Start returns.
	d.state.SetStreaming(true)
	if err := d.driver.Start(d.sample); err != nil {
		d.state.SetStreaming(false)
		d.logger.Error("resume: driver start failed", "error", err)
		return actionResumeFailed
	}

	d.logger.Info("stream resumed")
	if d.tracker != nil {
		d.tracker.Started(context.Background(), "resume")
	}
	return actionResume
}
