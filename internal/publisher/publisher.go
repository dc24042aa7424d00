package publisher

import (
	"sync/atomic"
	"time"

	"github.com/radioforge/iqstream-core/internal/capture"
	"github.com/radioforge/iqstream-core/internal/infrastructure/mqtt"
	"github.com/radioforge/iqstream-core/internal/queue"
	"github.com/radioforge/iqstream-core/internal/state"
)

// Transport is the outbound messaging contract the loop depends on.
// *mqtt.Client satisfies it; tests substitute fakes.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Logger defines the logging interface for the publisher loop.
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

// Loop drains the chunk queue into the transport on a dedicated
// goroutine.
//
// The loop's failure policy is drop-and-continue: a chunk popped while
// the transport is down is discarded (never requeued, never retried),
// and a failed publish is logged and forgotten. Reconnection belongs to
// the transport; nothing here blocks beyond the bounded WaitPop, so
// clearing the run flag stops the loop within one poll interval.
type Loop struct {
	queue     *queue.Bounded[capture.Chunk]
	transport Transport
	state     *state.State
	logger    Logger

	topic    string
	qos      byte
	interval time.Duration

	published atomic.Uint64
	discarded atomic.Uint64

	done chan struct{}
}

// Config holds the publisher loop settings.
type Config struct {
	// Topic is the MQTT topic IQ chunks are published to.
	Topic string

	// QoS is the publish QoS level (0 for IQ data).
	QoS byte

	// PollInterval is the WaitPop timeout. It bounds both publish
	// cadence when idle and shutdown latency.
	PollInterval time.Duration
}

// New creates a publisher loop. Call Start to begin draining.
//
// Parameters:
//   - q: Source chunk queue
//   - transport: Destination transport
//   - st: Shared lifecycle state (run flag)
//   - cfg: Topic, QoS, and poll interval
//   - logger: Diagnostics sink; nil for none
//
// Returns:
//   - *Loop: Loop ready to Start
func New(q *queue.Bounded[capture.Chunk], transport Transport, st *state.State, cfg Config, logger Logger) *Loop {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Loop{
		queue:     q,
		transport: transport,
		state:     st,
		logger:    logger,
		topic:     cfg.Topic,
		qos:       cfg.QoS,
		interval:  cfg.PollInterval,
		done:      make(chan struct{}),
	}
}

// Start launches the loop on its own goroutine.
func (l *Loop) Start() {
	go l.run()
}

// run is the loop body. It exits when the run flag clears, without
// draining chunks still queued (best-effort delivery).
func (l *Loop) run() {
	defer close(l.done)

	l.logger.Info("publisher loop started", "topic", l.topic, "poll_interval", l.interval)

	for l.state.Running() {
		chunk, ok := l.queue.WaitPop(l.interval)
		if !ok {
			// Timeout: loop around and re-check the run flag.
			continue
		}

		if !l.transport.IsConnected() {
			// Transport down: discard without attempting a publish.
			// Reconnection is the transport's job, not ours.
			l.discarded.Add(1)
			l.logger.Debug("transport disconnected, discarding chunk", "bytes", len(chunk))
			continue
		}

		if err := l.transport.Publish(l.topic, chunk, l.qos, false); err != nil {
			l.discarded.Add(1)
			if mqtt.IsConnectionError(err) {
				l.logger.Warn("transport lost during publish, chunk discarded", "error", err)
			} else {
				l.logger.Error("publish failed, chunk discarded", "error", err)
			}
			// Either way: not fatal, move to the next chunk.
			continue
		}

		l.published.Add(1)
	}

	l.logger.Info("publisher loop stopped",
		"published", l.published.Load(),
		"discarded", l.discarded.Load(),
		"left_queued", l.queue.Len(),
	)
}

// Wait blocks until the loop goroutine has exited or the timeout
// elapses.
//
// Parameters:
//   - timeout: Maximum time to wait
//
// Returns:
//   - bool: true if the loop exited, false on timeout
func (l *Loop) Wait(timeout time.Duration) bool {
	select {
	case <-l.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Published returns the total chunks delivered to the transport.
func (l *Loop) Published() uint64 {
	return l.published.Load()
}

// Discarded returns the total chunks popped but not delivered.
func (l *Loop) Discarded() uint64 {
	return l.discarded.Load()
}
