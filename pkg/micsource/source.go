// Package micsource implements C1, the audio source: a pluggable
// capture device abstraction (real microphone via malgo, or an in-memory
// fixture for tests) with saturating mute semantics and a restart
// wrapper for transient I/O failures.
package micsource

import (
	"context"

	"github.com/voxloop/listener/pkg/audio"
)

// Chunk is the default frame size in samples, matching spec.md's CHUNK.
const Chunk = 1024

// Source is the capture-device contract every implementation satisfies.
type Source interface {
	// Open acquires the underlying device. Open must be called before
	// ReadFrame and is not safe to call concurrently with itself.
	Open() error

	// ReadFrame blocks until Chunk samples are available and returns
	// them as a Frame. When the source is muted, ReadFrame still returns
	// in real time but the Data is silence of the correct shape.
	ReadFrame(ctx context.Context) (audio.Frame, error)

	// Mute increments the mute depth counter.
	Mute()
	// Unmute decrements the mute depth counter, saturating at 0.
	Unmute()
	// IsMuted reports whether the mute depth is greater than 0.
	IsMuted() bool

	// Restart attempts to recover the device after an I/O error.
	Restart() error
	// Close releases the underlying device.
	Close() error
}
