package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/radioforge/iqstream-core/internal/capture"
	"github.com/radioforge/iqstream-core/internal/state"
)

// fakeDriver counts transitions and simulates start/stop failures.
type fakeDriver struct {
	mu         sync.Mutex
	streaming  bool
	startCalls int
	stopCalls  int
	startErr   error
	stopErr    error
}

func (f *fakeDriver) Start(capture.SampleFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.streaming = true
	return nil
}

func (f *fakeDriver) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.streaming = false
	return nil
}

func (f *fakeDriver) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *fakeDriver) calls() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls
}

// fakeTracker records ledger calls.
type fakeTracker struct {
	mu      sync.Mutex
	started []string
	stopped []string
	events  []string
}

func (f *fakeTracker) Started(_ context.Context, trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, trigger)
}

func (f *fakeTracker) Stopped(_ context.Context, trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, trigger)
}

func (f *fakeTracker) Event(_ context.Context, _, _, action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, action)
}

func (f *fakeTracker) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

const testTopic = "iqstream/control/test-01"

func streamingSetup(t *testing.T) (*Dispatcher, *fakeDriver, *state.State) {
	t.Helper()
	driver := &fakeDriver{streaming: true}
	st := state.New()
	st.SetStreaming(true)
	d := New(driver, func([]byte) error { return nil }, st, nil)
	return d, driver, st
}

func TestParse(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
	}{
		{"PAUSE", CommandPause},
		{"RESUME", CommandResume},
		{"pause", CommandUnknown},
		{"Resume", CommandUnknown},
		{"PAUSE ", CommandUnknown},
		{"STOP", CommandUnknown},
		{"", CommandUnknown},
		{`{"cmd":"PAUSE"}`, CommandUnknown},
	}

	for _, tt := range tests {
		if got := Parse([]byte(tt.payload)); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}

func TestPauseStopsStream(t *testing.T) {
	d, driver, st := streamingSetup(t)

	if err := d.HandleMessage(testTopic, []byte("PAUSE")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if st.Streaming() {
		t.Error("Streaming() = true after PAUSE")
	}
	if _, stops := driver.calls(); stops != 1 {
		t.Errorf("driver stops = %d, want 1", stops)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	d, driver, _ := streamingSetup(t)

	tracker := &fakeTracker{}
	d.SetTracker(tracker)

	for i := 0; i < 3; i++ {
		if err := d.HandleMessage(testTopic, []byte("PAUSE")); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
	}

	if _, stops := driver.calls(); stops != 1 {
		t.Errorf("driver stops = %d after repeated PAUSE, want 1", stops)
	}

	want := []string{"pause", "ignored", "ignored"}
	got := tracker.actions()
	if len(got) != len(want) {
		t.Fatalf("recorded actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResumeRestartsStream(t *testing.T) {
	d, driver, st := streamingSetup(t)

	if err := d.HandleMessage(testTopic, []byte("PAUSE")); err != nil {
		t.Fatalf("HandleMessage(PAUSE) error = %v", err)
	}
	if err := d.HandleMessage(testTopic, []byte("RESUME")); err != nil {
		t.Fatalf("HandleMessage(RESUME) error = %v", err)
	}

	if !st.Streaming() {
		t.Error("Streaming() = false after RESUME")
	}
	if starts, _ := driver.calls(); starts != 1 {
		t.Errorf("driver starts = %d, want 1", starts)
	}
}

func TestResumeIsIdempotent(t *testing.T) {
	d, driver, _ := streamingSetup(t)

	// Already streaming: RESUME must not touch the driver.
	if err := d.HandleMessage(testTopic, []byte("RESUME")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	starts, stops := driver.calls()
	if starts != 0 || stops != 0 {
		t.Errorf("driver calls = (%d starts, %d stops) for no-op RESUME, want none", starts, stops)
	}
}

func TestUnknownPayloadDoesNotTransition(t *testing.T) {
	d, driver, st := streamingSetup(t)

	tracker := &fakeTracker{}
	d.SetTracker(tracker)

	for _, payload := range []string{"pause", "STOP", "", "RESUME\n"} {
		if err := d.HandleMessage(testTopic, []byte(payload)); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", payload, err)
		}
	}

	if !st.Streaming() {
		t.Error("Streaming() = false after unknown payloads")
	}
	starts, stops := driver.calls()
	if starts != 0 || stops != 0 {
		t.Errorf("driver calls = (%d starts, %d stops) for unknown payloads, want none", starts, stops)
	}
	for _, action := range tracker.actions() {
		if action != "unknown" {
			t.Errorf("recorded action = %q, want %q", action, "unknown")
		}
	}
}

func TestResumeFailureStaysStopped(t *testing.T) {
	driver := &fakeDriver{startErr: errors.New("device busy")}
	st := state.New()
	d := New(driver, func([]byte) error { return nil }, st, nil)

	tracker := &fakeTracker{}
	d.SetTracker(tracker)

	if err := d.HandleMessage(testTopic, []byte("RESUME")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if st.Streaming() {
		t.Error("Streaming() = true after failed RESUME")
	}

	got := tracker.actions()
	if len(got) != 1 || got[0] != "resume_failed" {
		t.Errorf("recorded actions = %v, want [resume_failed]", got)
	}

	// The dispatcher must still serve later commands.
	driver.mu.Lock()
	driver.startErr = nil
	driver.mu.Unlock()

	if err := d.HandleMessage(testTopic, []byte("RESUME")); err != nil {
		t.Fatalf("HandleMessage() retry error = %v", err)
	}
	if !st.Streaming() {
		t.Error("Streaming() = false after recovered RESUME")
	}
}

func TestPauseStopsRunawayDriver(t *testing.T) {
	// Intent says stopped but the device is still delivering (an
	// earlier stop failed). PAUSE must converge the device, not no-op.
	driver := &fakeDriver{streaming: true}
	st := state.New()
	d := New(driver, func([]byte) error { return nil }, st, nil)

	tracker := &fakeTracker{}
	d.SetTracker(tracker)

	if err := d.HandleMessage(testTopic, []byte("PAUSE")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if driver.IsStreaming() {
		t.Error("driver still streaming after PAUSE")
	}
	if _, stops := driver.calls(); stops != 1 {
		t.Errorf("driver stops = %d, want 1", stops)
	}

	got := tracker.actions()
	if len(got) != 1 || got[0] != "pause" {
		t.Errorf("recorded actions = %v, want [pause]", got)
	}
}

func TestPauseStopFailureStillStopsProduction(t *testing.T) {
	driver := &fakeDriver{streaming: true, stopErr: errors.New("device wedged")}
	st := state.New()
	st.SetStreaming(true)
	d := New(driver, func([]byte) error { return nil }, st, nil)

	if err := d.HandleMessage(testTopic, []byte("PAUSE")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	// Production halts even when the device refuses to: the streaming
	// flag gates the producer regardless of driver health.
	if st.Streaming() {
		t.Error("Streaming() = true after PAUSE with stop failure")
	}
}
