package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/radioforge/iqstream-core/internal/capture"
	"github.com/radioforge/iqstream-core/internal/infrastructure/config"
	"github.com/radioforge/iqstream-core/internal/infrastructure/mqtt"
)

// fakeTransport records publishes and captured subscriptions.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	subQoS   map[string]byte
	messages map[string][][]byte
	subErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[string]mqtt.MessageHandler),
		subQoS:   make(map[string]byte),
		messages: make(map[string][][]byte),
	}
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.messages[topic] = append(f.messages[topic], cp)
	return nil
}

func (f *fakeTransport) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.handlers[topic] = handler
	f.subQoS[topic] = qos
	return nil
}

func (f *fakeTransport) subscribedQoS(topic string) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subQoS[topic]
}

func (f *fakeTransport) IsConnected() bool { return true }

func (f *fakeTransport) handler(topic string) mqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func (f *fakeTransport) published(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.messages[topic]))
	copy(out, f.messages[topic])
	return out
}

// fakeDriver hands the registered callback to the test instead of a
// device, so sample delivery is driven explicitly.
type fakeDriver struct {
	mu        sync.Mutex
	fn        capture.SampleFunc
	onExit    func(error)
	streaming bool
	startErr  error
	stops     int
}

func (f *fakeDriver) Start(fn capture.SampleFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.fn = fn
	f.streaming = true
	return nil
}

func (f *fakeDriver) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.streaming = false
	return nil
}

func (f *fakeDriver) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *fakeDriver) SetOnExit(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExit = fn
}

func (f *fakeDriver) deliver(block []byte) error {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return errors.New("driver not started")
	}
	return fn(block)
}

func (f *fakeDriver) exitUnexpectedly(err error) {
	f.mu.Lock()
	f.streaming = false
	onExit := f.onExit
	f.mu.Unlock()
	if onExit != nil {
		onExit(err)
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Device.ID = "test-01"
	cfg.Publisher.PollIntervalMs = 20
	return cfg
}

// runPipeline starts Run on its own goroutine and returns the cancel
// func and the result channel.
func runPipeline(t *testing.T, p *Pipeline) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRunStartsCaptureOnBoot(t *testing.T) {
	cfg := testConfig()
	transport := newFakeTransport()
	driver := &fakeDriver{}

	p := New(Options{Config: cfg, Transport: transport, Driver: driver})
	cancel, done := runPipeline(t, p)

	waitFor(t, time.Second, driver.IsStreaming)

	if transport.handler(cfg.MQTT.Topics.Control) == nil {
		t.Fatal("no control subscription registered")
	}
	if got := transport.subscribedQoS(cfg.MQTT.Topics.Control); got != 1 {
		t.Errorf("control subscription QoS = %d, want 1", got)
	}

	// Samples delivered by the driver must come out on the data topic.
	if err := driver.deliver([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return len(transport.published(cfg.MQTT.Topics.Data)) == 1
	})
	if got := transport.published(cfg.MQTT.Topics.Data)[0]; !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("published chunk = %v, want [1 2 3 4]", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if driver.IsStreaming() {
		t.Error("driver still streaming after shutdown")
	}
}

func TestRunIdleWithoutStartOnBoot(t *testing.T) {
	cfg := testConfig()
	cfg.Stream.StartOnBoot = false
	transport := newFakeTransport()
	driver := &fakeDriver{}

	p := New(Options{Config: cfg, Transport: transport, Driver: driver})
	_, _ = runPipeline(t, p)

	// The control subscription comes up even though capture does not.
	waitFor(t, time.Second, func() bool {
		return transport.handler(cfg.MQTT.Topics.Control) != nil
	})
	if driver.IsStreaming() {
		t.Fatal("driver streaming without start_on_boot")
	}

	// RESUME brings the device up.
	handler := transport.handler(cfg.MQTT.Topics.Control)
	if err := handler(cfg.MQTT.Topics.Control, []byte("RESUME")); err != nil {
		t.Fatalf("control handler error = %v", err)
	}
	if !driver.IsStreaming() {
		t.Error("driver not streaming after RESUME")
	}
}

func TestControlPauseAndResume(t *testing.T) {
	cfg := testConfig()
	transport := newFakeTransport()
	driver := &fakeDriver{}

	p := New(Options{Config: cfg, Transport: transport, Driver: driver})
	_, _ = runPipeline(t, p)
	waitFor(t, time.Second, driver.IsStreaming)

	handler := transport.handler(cfg.MQTT.Topics.Control)

	if err := handler(cfg.MQTT.Topics.Control, []byte("PAUSE")); err != nil {
		t.Fatalf("PAUSE handler error = %v", err)
	}
	if driver.IsStreaming() {
		t.Fatal("driver streaming after PAUSE")
	}

	// Blocks from a device that missed the stop are refused.
	if err := driver.deliver([]byte{9}); !errors.Is(err, capture.ErrStopRequested) {
		t.Errorf("deliver() while paused error = %v, want ErrStopRequested", err)
	}

	if err := handler(cfg.MQTT.Topics.Control, []byte("RESUME")); err != nil {
		t.Fatalf("RESUME handler error = %v", err)
	}
	if !driver.IsStreaming() {
		t.Error("driver not streaming after RESUME")
	}
}

func TestRunFailsWhenSubscribeFails(t *testing.T) {
	cfg := testConfig()
	transport := newFakeTransport()
	transport.subErr = errors.New("broker refused")

	p := New(Options{Config: cfg, Transport: transport, Driver: &fakeDriver{}})

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil with failing subscription, want error")
	}
}

func TestRunFailsWhenDeviceStartFails(t *testing.T) {
	cfg := testConfig()
	transport := newFakeTransport()
	driver := &fakeDriver{startErr: capture.ErrStartFailed}

	p := New(Options{Config: cfg, Transport: transport, Driver: driver})

	err := p.Run(context.Background())
	if !errors.Is(err, capture.ErrStartFailed) {
		t.Fatalf("Run() error = %v, want ErrStartFailed", err)
	}
}

func TestDriverExitLeavesControlAlive(t *testing.T) {
	cfg := testConfig()
	transport := newFakeTransport()
	driver := &fakeDriver{}

	p := New(Options{Config: cfg, Transport: transport, Driver: driver})
	_, done := runPipeline(t, p)
	waitFor(t, time.Second, driver.IsStreaming)

	driver.exitUnexpectedly(errors.New("device unplugged"))

	// The process must keep running and accept a RESUME.
	select {
	case err := <-done:
		t.Fatalf("Run() returned %v after device exit", err)
	case <-time.After(100 * time.Millisecond):
	}

	handler := transport.handler(cfg.MQTT.Topics.Control)
	if err := handler(cfg.MQTT.Topics.Control, []byte("RESUME")); err != nil {
		t.Fatalf("RESUME handler error = %v", err)
	}
	if !driver.IsStreaming() {
		t.Error("driver not streaming after post-exit RESUME")
	}
}
