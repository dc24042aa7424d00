package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/radioforge/iqstream-core/internal/capture"
	"github.com/radioforge/iqstream-core/internal/control"
	"github.com/radioforge/iqstream-core/internal/infrastructure/config"
	"github.com/radioforge/iqstream-core/internal/infrastructure/influxdb"
	"github.com/radioforge/iqstream-core/internal/infrastructure/mqtt"
	"github.com/radioforge/iqstream-core/internal/publisher"
	"github.com/radioforge/iqstream-core/internal/queue"
	"github.com/radioforge/iqstream-core/internal/session"
	"github.com/radioforge/iqstream-core/internal/state"
)

// shutdownGrace is added to the publisher poll interval when waiting
// for the loop goroutine to exit.
const shutdownGrace = 500 * time.Millisecond

// controlQoS is the subscription QoS for the control topic. Control
// rides QoS 1 regardless of the configured data QoS: losing an IQ
// chunk costs nothing, losing a PAUSE leaves the device transmitting.
// The dispatcher is idempotent, so at-least-once duplicates are safe.
const controlQoS = 1

// Transport is the messaging contract the pipeline depends on.
// *mqtt.Client satisfies it; tests substitute fakes.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Logger defines the logging interface for the pipeline.
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

// Options carries the externally constructed collaborators. Sessions
// and Telemetry are optional; a nil value disables that concern.
type Options struct {
	Config    *config.Config
	Logger    Logger
	Transport Transport
	Driver    capture.Driver
	Sessions  *session.Store
	Telemetry *influxdb.Client
}

// Pipeline wires the capture chain together: driver callback into
// producer, producer into the bounded queue, queue into the publisher
// loop, and the control dispatcher over the top.
//
// Run owns startup order and shutdown order. Everything between those
// two moments is event-driven; the pipeline itself holds no data-path
// goroutine besides the publisher loop and the optional telemetry
// sampler.
type Pipeline struct {
	cfg       *config.Config
	logger    Logger
	transport Transport
	driver    capture.Driver
	telemetry *influxdb.Client

	state      *state.State
	queue      *queue.Bounded[capture.Chunk]
	producer   *capture.Producer
	loop       *publisher.Loop
	dispatcher *control.Dispatcher
	hooks      *sessionHooks
}

// New assembles a pipeline from the given options.
//
// Parameters:
//   - opts: Collaborators; Config, Transport, and Driver are required
//
// Returns:
//   - *Pipeline: Ready for Run
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	st := state.New()
	q := queue.NewBounded[capture.Chunk](opts.Config.Queue.Capacity)
	producer := capture.NewProducer(q, st, logger)

	loop := publisher.New(q, opts.Transport, st, publisher.Config{
		Topic:        opts.Config.MQTT.Topics.Data,
		QoS:          byte(opts.Config.MQTT.QoS),
		PollInterval: opts.Config.PollInterval(),
	}, logger)

	var tracker *session.Tracker
	if opts.Sessions != nil {
		tracker = session.NewTracker(opts.Sessions, session.Counters{
			Published: loop.Published,
			Dropped:   producer.Dropped,
		}, logger)
	}

	hooks := &sessionHooks{
		receiverID: opts.Config.Device.ID,
		tracker:    tracker,
		telemetry:  opts.Telemetry,
	}

	dispatcher := control.New(opts.Driver, producer.HandleBlock, st, logger)
	dispatcher.SetTracker(hooks)

	return &Pipeline{
		cfg:        opts.Config,
		logger:     logger,
		transport:  opts.Transport,
		driver:     opts.Driver,
		telemetry:  opts.Telemetry,
		state:      st,
		queue:      q,
		producer:   producer,
		loop:       loop,
		dispatcher: dispatcher,
		hooks:      hooks,
	}
}

// Run starts the pipeline and blocks until ctx is cancelled, then
// performs an orderly shutdown.
//
// Startup order: control subscription first (so a paused receiver is
// commandable even if capture never starts), then the publisher loop,
// then the device if start_on_boot is set. A failure in any startup
// step aborts the run; everything during shutdown is best-effort.
//
// Parameters:
//   - ctx: Cancellation signal, typically wired to SIGINT/SIGTERM
//
// Returns:
//   - error: If a startup step fails; nil after a clean shutdown
func (p *Pipeline) Run(ctx context.Context) error {
	controlTopic := p.cfg.MQTT.Topics.Control
	if err := p.transport.Subscribe(controlTopic, controlQoS, p.dispatcher.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to control topic %s: %w", controlTopic, err)
	}
	p.logger.Info("control subscription active", "topic", controlTopic)

	// An unrequested device exit (unplug, firmware fault) ends the
	// session but not the process: the queue drains, the control
	// subscription stays up, and RESUME can try a fresh start.
	if h, ok := p.driver.(interface{ SetOnExit(func(error)) }); ok {
		h.SetOnExit(func(err error) {
			p.logger.Error("capture device exited unexpectedly", "error", err)
			p.state.SetStreaming(false)
			p.hooks.Stopped(context.Background(), session.TriggerDriverExit)
		})
	}

	p.loop.Start()

	if p.cfg.Stream.StartOnBoot {
		p.state.SetStreaming(true)
		if err := p.driver.Start(p.producer.HandleBlock); err != nil {
			p.state.SetStreaming(false)
			p.state.Shutdown()
			p.loop.Wait(p.cfg.PollInterval() + shutdownGrace)
			return fmt.Errorf("starting capture device: %w", err)
		}
		p.hooks.Started(context.Background(), session.TriggerBoot)
		p.logger.Info("capture started",
			"receiver_id", p.cfg.Device.ID,
			"center_frequency_hz", p.cfg.Device.CenterFrequencyHz,
			"sample_rate_hz", p.cfg.Device.SampleRateHz,
		)
	} else {
		p.logger.Info("capture idle, waiting for RESUME", "receiver_id", p.cfg.Device.ID)
	}

	if p.telemetry != nil {
		go p.sampleTelemetry(p.cfg.SampleInterval())
	}

	<-ctx.Done()
	p.shutdown()
	return nil
}

// shutdown stops the pipeline in reverse of startup order. Every step
// is best-effort; a stuck device must not prevent the rest of the
// teardown.
func (p *Pipeline) shutdown() {
	p.logger.Info("pipeline shutting down")

	wasStreaming := p.state.Streaming()
	p.state.Shutdown()

	// The loop exits within one poll interval of the flag clearing.
	if !p.loop.Wait(p.cfg.PollInterval() + shutdownGrace) {
		p.logger.Warn("publisher loop did not exit in time")
	}

	if p.driver.IsStreaming() {
		if err := p.driver.Stop(); err != nil {
			p.logger.Error("stopping capture device", "error", err)
		}
	}

	if wasStreaming {
		p.hooks.Stopped(context.Background(), session.TriggerShutdown)
	}

	p.logger.Info("pipeline stopped",
		"chunks_produced", p.producer.Produced(),
		"chunks_dropped", p.producer.Dropped(),
		"chunks_published", p.loop.Published(),
		"chunks_discarded", p.loop.Discarded(),
		"left_queued", p.queue.Len(),
	)
}

// sampleTelemetry periodically records queue depth and chunk counters.
// It exits within one interval of shutdown; Run does not wait for it.
func (p *Pipeline) sampleTelemetry(interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if !p.state.Running() {
			return
		}
		p.telemetry.WriteQueueDepth(p.cfg.Device.ID, p.queue.Len(), p.queue.Capacity())
		p.telemetry.WriteChunkCounters(p.cfg.Device.ID,
			p.producer.Produced(),
			p.producer.Dropped(),
			p.loop.Published(),
			p.loop.Discarded(),
		)
	}
}

// sessionHooks fans session transitions out to the SQLite ledger and
// the telemetry sink. Both sides are optional and best-effort.
type sessionHooks struct {
	receiverID string
	tracker    *session.Tracker
	telemetry  *influxdb.Client
}

func (h *sessionHooks) Started(ctx context.Context, trigger string) {
	if h.tracker != nil {
		h.tracker.Started(ctx, trigger)
	}
	if h.telemetry != nil {
		h.telemetry.WriteSessionEvent(h.receiverID, "started", trigger)
	}
}

func (h *sessionHooks) Stopped(ctx context.Context, trigger string) {
	if h.tracker != nil {
		h.tracker.Stopped(ctx, trigger)
	}
	if h.telemetry != nil {
		h.telemetry.WriteSessionEvent(h.receiverID, "stopped", trigger)
	}
}

func (h *sessionHooks) Event(ctx context.Context, topic, payload, action string) {
	if h.tracker != nil {
		h.tracker.Event(ctx, topic, payload, action)
	}
}
