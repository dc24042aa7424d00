package capture

import (
	"sync/atomic"
	"time"

	"github.com/radioforge/iqstream-core/internal/queue"
	"github.com/radioforge/iqstream-core/internal/state"
)

// dropLogWindow is the minimum interval between queue-full warnings.
// Drops inside the window are accumulated and reported as one count;
// at 2 Msps the callback fires often enough to flood the log otherwise.
const dropLogWindow = time.Second

// Producer turns driver sample blocks into queued chunks.
//
// It runs inside the driver's callback goroutine, so every path through
// HandleBlock is bounded and non-blocking: one copy, one O(1) TryPush,
// no retries, no waits. When the queue is full the chunk is dropped and
// counted; when shutdown has begun the producer tells the driver to
// stop instead of touching the queue.
type Producer struct {
	queue  *queue.Bounded[Chunk]
	state  *state.State
	logger Logger

	produced atomic.Uint64
	dropped  atomic.Uint64

	// Rate-limited drop reporting.
	windowDrops   atomic.Uint64
	lastDropLogNs atomic.Int64
}

// NewProducer creates a producer feeding the given queue.
//
// Parameters:
//   - q: Destination chunk queue
//   - st: Shared lifecycle state (run flag)
//   - logger: Diagnostics sink; nil for none
//
// Returns:
//   - *Producer: Producer whose HandleBlock is ready to register as a
//     driver SampleFunc
func NewProducer(q *queue.Bounded[Chunk], st *state.State, logger Logger) *Producer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Producer{
		queue:  q,
		state:  st,
		logger: logger,
	}
}

// HandleBlock is the driver SampleFunc.
//
// Parameters:
//   - block: Sample block owned by the driver; copied before enqueue
//
// Returns:
//   - error: ErrStopRequested once the run flag clears or the stream is
//     paused, nil otherwise. A full queue is not an error; the chunk is
//     dropped and counted.
func (p *Producer) HandleBlock(block []byte) error {
	if !p.state.Running() {
		// No queue activity after shutdown begins.
		return ErrStopRequested
	}
	if !p.state.Streaming() {
		// Paused but the device is still delivering: refuse the block
		// so the driver halts even when its Stop call failed.
		return ErrStopRequested
	}
	if len(block) == 0 {
		return nil
	}

	chunk := make(Chunk, len(block))
	copy(chunk, block)

	if !p.queue.TryPush(chunk) {
		p.recordDrop(len(block))
		return nil
	}

	p.produced.Add(1)
	return nil
}

// recordDrop counts a rejected chunk and emits at most one warning per
// dropLogWindow, carrying the drops accumulated since the last report.
func (p *Producer) recordDrop(size int) {
	p.dropped.Add(1)
	p.windowDrops.Add(1)

	now := time.Now().UnixNano()
	last := p.lastDropLogNs.Load()
	if now-last < int64(dropLogWindow) {
		return
	}
	if !p.lastDropLogNs.CompareAndSwap(last, now) {
		// Another callback invocation just reported this window.
		return
	}

	n := p.windowDrops.Swap(0)
	p.logger.Warn("IQ queue full, dropping chunks",
		"dropped_in_window", n,
		"dropped_total", p.dropped.Load(),
		"chunk_bytes", size,
	)
}

// Produced returns the total chunks accepted into the queue.
func (p *Producer) Produced() uint64 {
	return p.produced.Load()
}

// Dropped returns the total chunks rejected by a full queue.
func (p *Producer) Dropped() uint64 {
	return p.dropped.Load()
}
