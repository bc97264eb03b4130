package micsource

import "errors"

// Sentinel errors surfaced across Source implementations, composed with
// fmt.Errorf("...: %w", err) at the call site the way the teacher's
// pkg/orchestrator/errors.go composes its own sentinels.
var (
	// ErrAudioIO wraps a failure talking to the underlying capture device.
	ErrAudioIO = errors.New("micsource: audio i/o error")
	// ErrOverflow indicates the capture callback produced frames faster
	// than ReadFrame could drain them and the internal buffer could not
	// hold all of it; the producer classifies this as recoverable.
	ErrOverflow = errors.New("micsource: capture buffer overflow")
	// ErrClosed is returned by ReadFrame after Close has been called.
	ErrClosed = errors.New("micsource: source is closed")
	// ErrMaxRestartsExceeded is returned by RestartableSource once it has
	// exhausted MaxMicRestarts recovery attempts; the producer treats this
	// as fatal.
	ErrMaxRestartsExceeded = errors.New("micsource: maximum restart attempts exceeded")
)
