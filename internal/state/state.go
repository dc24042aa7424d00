package state

import "sync/atomic"

// State is the shared lifecycle context passed to every pipeline
// component at construction. It replaces free-standing process globals
// so each test can build its own isolated instance.
//
// It carries two independent flags:
//
//   - run: the process-wide run flag. Starts true, cleared exactly once
//     at shutdown initiation, never set back. The publisher loop and
//     the producer observe it at iteration granularity; it is the sole
//     cancellation signal in the core.
//   - streaming: the intended capture state, mutated only by the
//     control dispatcher and by the orchestrator during startup and
//     shutdown. The producer refuses sample blocks while it is clear,
//     so a device that misses a stop request still goes quiet.
//
// Thread Safety:
//   - All methods are safe for concurrent use; both flags are atomics,
//     so readers on the producer hot path never take a lock.
type State struct {
	run       atomic.Bool
	streaming atomic.Bool
}

// New returns a State with the run flag set and streaming cleared.
func New() *State {
	s := &State{}
	s.run.Store(true)
	return s
}

// Running reports whether the process run flag is still set.
func (s *State) Running() bool {
	return s.run.Load()
}

// Shutdown clears the run flag. The transition is monotonic: once
// cleared the flag never returns to true, so every loop observing it
// is guaranteed to terminate.
func (s *State) Shutdown() {
	s.run.Store(false)
}

// Streaming reports the intended capture state.
func (s *State) Streaming() bool {
	return s.streaming.Load()
}

// SetStreaming records the intended capture state.
func (s *State) SetStreaming(v bool) {
	s.streaming.Store(v)
}
