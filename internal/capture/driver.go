package capture

import "errors"

// Chunk is one immutable unit of producer output: a block of interleaved
// 8-bit IQ samples. A chunk is created once by the producer, owned by
// the queue while enqueued, and consumed exactly once by the publisher.
type Chunk []byte

// SampleFunc is invoked by a Driver for every block of samples read
// from the device. The block is only valid for the duration of the
// call; implementations that keep data must copy it.
//
// Returning a non-nil error tells the driver to stop streaming. The
// producer uses this to halt the device once shutdown has begun.
type SampleFunc func(block []byte) error

// Driver is the capture device contract consumed by the pipeline.
//
// Implementations must guarantee:
//   - Start returns promptly; sample delivery happens on the driver's
//     own goroutine, never the caller's.
//   - Stop is idempotent and bounded in time.
//   - IsStreaming is safe to call from any goroutine.
type Driver interface {
	// Start begins capture, delivering sample blocks to fn until Stop
	// is called, fn returns an error, or the device fails.
	Start(fn SampleFunc) error

	// Stop halts capture and releases the device.
	Stop() error

	// IsStreaming reports whether the device is actively capturing.
	IsStreaming() bool
}

// Sentinel errors for capture operations.
var (
	// ErrAlreadyStreaming is returned by Start when capture is active.
	ErrAlreadyStreaming = errors.New("capture: already streaming")

	// ErrStartFailed is returned when the device cannot begin capture.
	ErrStartFailed = errors.New("capture: start failed")

	// ErrStopTimeout is returned when the device does not halt within
	// the shutdown grace period.
	ErrStopTimeout = errors.New("capture: stop timed out")

	// ErrStopRequested is the callback error used to signal an orderly
	// stop to the driver. Drivers treat it as a clean exit.
	ErrStopRequested = errors.New("capture: stop requested")
)

// Logger defines the logging interface for capture components.
// Compatible with logging.Logger and slog.Logger.
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
