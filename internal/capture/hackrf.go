package capture

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/radioforge/iqstream-core/internal/infrastructure/config"
)

// Subprocess shutdown constants.
const (
	// gracefulTimeout is how long Stop waits after SIGTERM before SIGKILL.
	gracefulTimeout = 3 * time.Second

	// killTimeout is how long Stop waits after SIGKILL before giving up.
	killTimeout = 2 * time.Second

	// stderrBufferSize is the buffer size for capturing subprocess stderr.
	stderrBufferSize = 4096
)

// HackRF captures IQ samples by running hackrf_transfer as a managed
// subprocess and slicing its stdout into fixed-size chunks.
//
// There is no maintained Go binding for libhackrf, so the device is
// driven the same way other external hardware daemons are: spawn the
// vendor tool, stream its output, and manage its lifecycle (graceful
// SIGTERM, SIGKILL fallback, stderr capture).
//
// Thread Safety:
//   - Start and Stop are mutually exclusive and safe to call from any
//     goroutine. IsStreaming is lock-free.
type HackRF struct {
	cfg    config.DeviceConfig
	logger Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	done      chan struct{}
	streaming atomic.Bool
	stopReq   atomic.Bool

	// onExit is called when the subprocess exits without Stop having
	// been requested (device unplugged, tool crash).
	onExit func(err error)
}

// NewHackRF creates a driver for the configured device.
//
// Parameters:
//   - cfg: Device configuration (binary path, tuning, chunk size)
//
// Returns:
//   - *HackRF: Driver ready for Start
func NewHackRF(cfg config.DeviceConfig) *HackRF {
	return &HackRF{
		cfg:    cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets a logger for subprocess diagnostics.
func (h *HackRF) SetLogger(logger Logger) {
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

// SetOnExit sets a callback invoked when the subprocess exits
// unexpectedly (not via Stop). The error describes the exit cause.
func (h *HackRF) SetOnExit(callback func(err error)) {
	h.mu.Lock()
	h.onExit = callback
	h.mu.Unlock()
}

// Start spawns hackrf_transfer and begins delivering sample chunks
// to fn on a dedicated goroutine.
//
// Start returns once the subprocess is running; it does not wait for
// the first sample.
//
// Parameters:
//   - fn: Callback receiving each chunk; a returned error stops capture
//
// Returns:
//   - error: ErrAlreadyStreaming, or ErrStartFailed wrapping the cause
func (h *HackRF) Start(fn SampleFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streaming.Load() {
		return ErrAlreadyStreaming
	}

	cmd := exec.Command(h.cfg.Binary, h.buildArgs()...) // #nosec G204 -- binary path comes from validated config

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %w", ErrStartFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %w", ErrStartFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	h.cmd = cmd
	h.done = make(chan struct{})
	h.stopReq.Store(false)
	h.streaming.Store(true)

	h.logger.Info("capture subprocess started",
		"binary", h.cfg.Binary,
		"pid", cmd.Process.Pid,
		"frequency_hz", h.cfg.CenterFrequencyHz,
		"sample_rate_hz", h.cfg.SampleRateHz,
	)

	go h.drainStderr(stderr)
	go h.readLoop(cmd, h.done, stdout, fn)

	return nil
}

// buildArgs assembles the hackrf_transfer argument list from config.
func (h *HackRF) buildArgs() []string {
	args := []string{
		"-r", "-", // stream samples to stdout
		"-f", strconv.FormatUint(h.cfg.CenterFrequencyHz, 10),
		"-s", strconv.FormatUint(uint64(h.cfg.SampleRateHz), 10),
	}
	if h.cfg.FilterBandwidthHz > 0 {
		args = append(args, "-b", strconv.FormatUint(uint64(h.cfg.FilterBandwidthHz), 10))
	}
	args = append(args,
		"-l", strconv.FormatUint(uint64(h.cfg.LNAGain), 10),
		"-g", strconv.FormatUint(uint64(h.cfg.VGAGain), 10),
	)
	if h.cfg.AmpEnable {
		args = append(args, "-a", "1")
	} else {
		args = append(args, "-a", "0")
	}
	return args
}

// readLoop slices subprocess stdout into chunks and feeds the callback.
// It owns the cmd.Wait call; Stop synchronises on the done channel.
//
// cmd and done are the run they belong to, passed in rather than read
// from the struct: once done closes, Stop returns and a new Start may
// replace the struct fields while this goroutine is still finishing.
func (h *HackRF) readLoop(cmd *exec.Cmd, done chan struct{}, stdout io.ReadCloser, fn SampleFunc) {
	buf := make([]byte, h.cfg.ChunkSize)
	var readErr error
	callbackStop := false

	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			if cbErr := fn(buf[:n]); cbErr != nil {
				if errors.Is(cbErr, ErrStopRequested) {
					// Producer-initiated stop counts as requested:
					// don't report it as an unexpected exit.
					callbackStop = true
				} else {
					h.logger.Warn("sample callback aborted capture", "error", cbErr)
				}
				break
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}
	}

	h.streaming.Store(false)

	// The loop may have ended while the subprocess is still running
	// (callback-requested stop). Terminate it so Wait cannot hang on
	// a full pipe.
	terminate(cmd)
	waitErr := cmd.Wait()

	// Fix the verdict before releasing Stop: the moment done closes,
	// Stop returns and a back-to-back Start resets stopReq, which must
	// not rewrite this run's outcome. Callback stops are tracked in a
	// run-local flag for the same reason.
	requested := callbackStop || h.stopReq.Load()
	close(done)

	if requested {
		h.logger.Info("capture subprocess stopped")
		return
	}

	// Unrequested exit: device unplugged, tool crash, or read failure.
	exitErr := waitErr
	if readErr != nil {
		exitErr = readErr
	}
	h.logger.Error("capture subprocess exited unexpectedly", "error", exitErr)

	h.mu.Lock()
	callback := h.onExit
	h.mu.Unlock()
	if callback != nil {
		callback(exitErr)
	}
}

// drainStderr forwards subprocess stderr lines to the logger at debug
// level. hackrf_transfer prints its tuning summary there.
func (h *HackRF) drainStderr(stderr io.ReadCloser) {
	buf := make([]byte, stderrBufferSize)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			h.logger.Debug("hackrf_transfer", "output", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// terminate asks a subprocess to exit. Safe to call repeatedly and
// after process exit.
func terminate(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM) //nolint:errcheck // Process may already be gone
	}
}

// Stop halts capture: SIGTERM, bounded wait, SIGKILL fallback.
//
// Stop is idempotent; calling it while not streaming returns nil.
//
// Returns:
//   - error: ErrStopTimeout if the subprocess survives SIGKILL's grace
//     period, nil otherwise
func (h *HackRF) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd == nil || !h.streaming.Load() {
		return nil
	}

	h.stopReq.Store(true)
	terminate(h.cmd)

	select {
	case <-h.done:
		return nil
	case <-time.After(gracefulTimeout):
	}

	h.logger.Warn("capture subprocess ignored SIGTERM, killing", "pid", h.cmd.Process.Pid)
	_ = h.cmd.Process.Kill() //nolint:errcheck // Best effort before final wait

	select {
	case <-h.done:
		return nil
	case <-time.After(killTimeout):
		return ErrStopTimeout
	}
}

// IsStreaming reports whether the subprocess is actively capturing.
func (h *HackRF) IsStreaming() bool {
	return h.streaming.Load()
}
