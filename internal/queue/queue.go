package queue

import (
	"sync"
	"time"

	ring "github.com/eapache/queue"
)

// Bounded is a fixed-capacity FIFO queue safe for concurrent use.
//
// Pushes never block: when the queue is at capacity, TryPush rejects
// the item and the caller keeps ownership. Pops block up to a bounded
// timeout and never busy-spin. Items come out in the exact order they
// went in, with no duplication.
//
// A capacity of 0 means unbounded. With capacity C > 0 the queue holds
// at most C items at all times, capping worst-case memory at
// C x max item size.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The push path takes only the O(1) mutex; it never waits on a
//     wakeup channel, so a latency-sensitive producer cannot be stalled
//     by a slow consumer.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    *ring.Queue
	capacity int

	// ready carries at most one wakeup for blocked poppers. Pushes
	// post to it without blocking; WaitPop re-checks the queue after
	// every wakeup, so a coalesced or spurious signal is harmless.
	ready chan struct{}
}

// NewBounded creates a queue with the given capacity.
//
// Parameters:
//   - capacity: Maximum queued items; 0 means unbounded
//
// Returns:
//   - *Bounded[T]: Empty queue ready for use
func NewBounded[T any](capacity int) *Bounded[T] {
	return &Bounded[T]{
		items:    ring.New(),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// TryPush attempts to enqueue an item at the tail.
//
// It never blocks beyond the O(1) internal lock. If the queue is at
// capacity the item is rejected and the queue is unchanged; the caller
// keeps ownership of rejected items.
//
// Parameters:
//   - item: The item to enqueue
//
// Returns:
//   - bool: true if enqueued, false if the queue was full
func (q *Bounded[T]) TryPush(item T) bool {
	q.mu.Lock()
	if q.capacity > 0 && q.items.Length() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items.Add(item)
	q.mu.Unlock()

	// Wake one waiting popper. Non-blocking: if a wakeup is already
	// pending, the popper will see this item on its next check.
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// WaitPop removes and returns the head item, blocking until an item is
// available or the timeout elapses.
//
// Parameters:
//   - timeout: Maximum time to wait for an item
//
// Returns:
//   - T: The head item (zero value on timeout)
//   - bool: true if an item was returned, false on timeout
func (q *Bounded[T]) WaitPop(timeout time.Duration) (T, bool) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if item, ok := q.TryPop(); ok {
			return item, true
		}

		select {
		case <-q.ready:
			// Re-check; another popper may have taken the item.
		case <-timer.C:
			// Final check in case a push raced the timer.
			if item, ok := q.TryPop(); ok {
				return item, true
			}
			return zero, false
		}
	}
}

// TryPop removes and returns the head item without waiting.
//
// Returns:
//   - T: The head item (zero value if empty)
//   - bool: true if an item was returned
func (q *Bounded[T]) TryPop() (T, bool) {
	var zero T
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		return zero, false
	}
	item, ok := q.items.Remove().(T)
	if !ok {
		// Cannot happen: only TryPush adds items.
		return zero, false
	}
	return item, true
}

// Len returns a snapshot of the current queue length.
// Safe to call concurrently with pushes and pops.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// IsEmpty reports whether the queue is currently empty.
// Safe to call concurrently with pushes and pops.
func (q *Bounded[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Capacity returns the configured capacity (0 = unbounded).
func (q *Bounded[T]) Capacity() int {
	return q.capacity
}
