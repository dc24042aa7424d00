package capture

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/radioforge/iqstream-core/internal/queue"
	"github.com/radioforge/iqstream-core/internal/state"
)

// recordingLogger counts log calls for rate-limit assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warns
}

// activeState returns lifecycle state with the stream marked live, the
// condition under which the driver invokes HandleBlock.
func activeState() *state.State {
	st := state.New()
	st.SetStreaming(true)
	return st
}

func TestHandleBlockEnqueuesCopy(t *testing.T) {
	q := queue.NewBounded[Chunk](10)
	p := NewProducer(q, activeState(), nil)

	block := []byte{1, 2, 3, 4}
	if err := p.HandleBlock(block); err != nil {
		t.Fatalf("HandleBlock() error = %v", err)
	}

	// The driver reuses its buffer; the queued chunk must be a copy.
	block[0] = 99

	chunk, ok := q.TryPop()
	if !ok {
		t.Fatal("queue empty after HandleBlock")
	}
	if !bytes.Equal(chunk, []byte{1, 2, 3, 4}) {
		t.Errorf("chunk = %v, want [1 2 3 4]", chunk)
	}

	if got := p.Produced(); got != 1 {
		t.Errorf("Produced() = %d, want 1", got)
	}
}

func TestHandleBlockAfterShutdown(t *testing.T) {
	q := queue.NewBounded[Chunk](10)
	st := state.New()
	p := NewProducer(q, st, nil)

	st.Shutdown()

	err := p.HandleBlock([]byte{1, 2, 3})
	if !errors.Is(err, ErrStopRequested) {
		t.Fatalf("HandleBlock() error = %v, want ErrStopRequested", err)
	}
	if !q.IsEmpty() {
		t.Error("queue not empty: no queue activity allowed after shutdown")
	}
}

func TestHandleBlockWhilePaused(t *testing.T) {
	q := queue.NewBounded[Chunk](10)
	st := activeState()
	p := NewProducer(q, st, nil)

	st.SetStreaming(false)

	err := p.HandleBlock([]byte{1, 2, 3})
	if !errors.Is(err, ErrStopRequested) {
		t.Fatalf("HandleBlock() error = %v, want ErrStopRequested", err)
	}
	if !q.IsEmpty() {
		t.Error("block enqueued while paused")
	}
}

func TestHandleBlockDropsWhenFull(t *testing.T) {
	q := queue.NewBounded[Chunk](1)
	p := NewProducer(q, activeState(), nil)

	if err := p.HandleBlock([]byte{1}); err != nil {
		t.Fatalf("HandleBlock() error = %v", err)
	}

	// Queue full: further blocks are dropped, never an error.
	for i := 0; i < 5; i++ {
		if err := p.HandleBlock([]byte{2}); err != nil {
			t.Fatalf("HandleBlock() on full queue error = %v", err)
		}
	}

	if got := q.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 (drops must not displace queued chunks)", got)
	}
	if got := p.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
	if got := p.Produced(); got != 1 {
		t.Errorf("Produced() = %d, want 1", got)
	}
}

func TestDropWarningsAreRateLimited(t *testing.T) {
	q := queue.NewBounded[Chunk](1)
	log := &recordingLogger{}
	p := NewProducer(q, activeState(), log)

	p.HandleBlock([]byte{1}) // fills the queue

	// A burst of drops inside one window must collapse to one warning.
	for i := 0; i < 100; i++ {
		p.HandleBlock([]byte{2})
	}

	if got := log.warnCount(); got != 1 {
		t.Errorf("warn count = %d for burst of 100 drops, want 1", got)
	}
	if got := p.Dropped(); got != 100 {
		t.Errorf("Dropped() = %d, want 100", got)
	}
}

func TestHandleBlockIgnoresEmptyBlock(t *testing.T) {
	q := queue.NewBounded[Chunk](10)
	p := NewProducer(q, activeState(), nil)

	if err := p.HandleBlock(nil); err != nil {
		t.Fatalf("HandleBlock(nil) error = %v", err)
	}
	if !q.IsEmpty() {
		t.Error("empty block was enqueued")
	}
}
