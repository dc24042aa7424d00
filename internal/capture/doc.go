// Package capture provides IQ sample acquisition for the iqstream core.
//
// It contains the three pieces of the upstream half of the pipeline:
//
//   - Driver: the device contract (Start/Stop/IsStreaming) the rest of
//     the system depends on.
//   - HackRF: the concrete driver, running hackrf_transfer as a managed
//     subprocess and slicing its stdout into fixed-size chunks.
//   - Producer: the driver callback that copies each block into the
//     bounded queue without ever blocking the capture path.
//
// The producer's non-blocking contract is the load-bearing invariant:
// the callback executes on the driver's read goroutine at the device's
// sample rate, and any stall there backs up into the hardware stream.
// Backpressure is therefore resolved by dropping, never by waiting.
package capture
