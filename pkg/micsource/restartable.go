package micsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxloop/listener/pkg/audio"
	"github.com/voxloop/listener/internal/logging"
)

// MaxMicRestarts caps the recoverable-overflow retry loop; once exceeded
// the wrapper surfaces ErrMaxRestartsExceeded, which the producer (C6)
// treats as fatal.
const MaxMicRestarts = 20

// RestartableSource wraps a Source, classifying ErrOverflow (and
// ErrAudioIO) as recoverable via Restart, retrying up to MaxMicRestarts
// times before giving up.
type RestartableSource struct {
	inner    Source
	log      logging.Logger
	restarts int
}

// NewRestartableSource wraps inner with the producer's overflow/restart
// policy. log may be nil, in which case a no-op logger is used.
func NewRestartableSource(inner Source, log logging.Logger) *RestartableSource {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &RestartableSource{inner: inner, log: log}
}

func (r *RestartableSource) Open() error { return r.inner.Open() }

// ReadFrame reads one frame, transparently restarting the underlying
// source on a recoverable error and retrying, up to MaxMicRestarts
// times. A non-recoverable error (anything not ErrOverflow or
// ErrAudioIO) is returned immediately without consuming a restart.
func (r *RestartableSource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	for {
		frame, err := r.inner.ReadFrame(ctx)
		if err == nil {
			return frame, nil
		}
		if !isRecoverable(err) {
			return audio.Frame{}, err
		}

		if r.restarts >= MaxMicRestarts {
			return audio.Frame{}, fmt.Errorf("%w: after %d restarts: %v", ErrMaxRestartsExceeded, r.restarts, err)
		}
		r.restarts++
		r.log.Warn("micsource: recovering from error, restarting source",
			"err", err, "attempt", r.restarts, "max", MaxMicRestarts)

		if restartErr := r.inner.Restart(); restartErr != nil {
			return audio.Frame{}, fmt.Errorf("%w: restart failed: %v", ErrAudioIO, restartErr)
		}
	}
}

func isRecoverable(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrAudioIO)
}

func (r *RestartableSource) Mute()         { r.inner.Mute() }
func (r *RestartableSource) Unmute()       { r.inner.Unmute() }
func (r *RestartableSource) IsMuted() bool { return r.inner.IsMuted() }
func (r *RestartableSource) Restart() error {
	r.restarts = 0
	return r.inner.Restart()
}
func (r *RestartableSource) Close() error { return r.inner.Close() }

// Restarts reports the number of recovery attempts made since the last
// explicit Restart call, for observability/testing.
func (r *RestartableSource) Restarts() int { return r.restarts }
