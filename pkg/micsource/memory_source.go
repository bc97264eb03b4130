package micsource

import (
	"context"
	"sync"

	"github.com/voxloop/listener/pkg/audio"
)

// MemorySource plays back a pre-loaded PCM buffer in Chunk-sized frames.
// Used in tests for deterministic producer/consumer and recognizer
// behavior, including simulated overflow and restart scenarios.
type MemorySource struct {
	muteCounter

	sampleRate  int
	sampleWidth int
	chunk       int

	mu        sync.Mutex
	data      []byte
	pos       int
	opened    bool
	closed    bool
	restarts  int
	failNext  bool // simulate one I/O error on the next ReadFrame
	overflows int  // remaining ErrOverflow responses before resuming normal reads
}

// NewMemorySource builds a MemorySource over pcm, read out Chunk samples
// at a time at the given rate/width.
func NewMemorySource(pcm []byte, sampleRate, sampleWidth int) *MemorySource {
	return &MemorySource{
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
		chunk:       Chunk,
		data:        pcm,
	}
}

// WithChunk overrides the frame size used for ReadFrame, for tests that
// want a smaller fixture than the default 1024 samples.
func (m *MemorySource) WithChunk(chunk int) *MemorySource {
	m.chunk = chunk
	return m
}

func (m *MemorySource) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	m.closed = false
	return nil
}

// InjectOverflow makes the next n ReadFrame calls return ErrOverflow,
// simulating the capture device producing frames faster than the
// consumer drains them.
func (m *MemorySource) InjectOverflow(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflows = n
}

// InjectIOFailure makes the next ReadFrame call return ErrAudioIO.
func (m *MemorySource) InjectIOFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

func (m *MemorySource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	select {
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return audio.Frame{}, ErrClosed
	}
	if m.failNext {
		m.failNext = false
		return audio.Frame{}, ErrAudioIO
	}
	if m.overflows > 0 {
		m.overflows--
		return audio.Frame{}, ErrOverflow
	}

	n := m.chunk * m.sampleWidth
	buf := make([]byte, n)
	if m.pos < len(m.data) {
		copied := copy(buf, m.data[m.pos:])
		m.pos += copied
	}

	if m.isMuted() {
		buf = make([]byte, n)
	}

	return audio.Frame{
		Data:        buf,
		SampleRate:  m.sampleRate,
		SampleWidth: m.sampleWidth,
		Channels:    1,
	}, nil
}

func (m *MemorySource) Mute()        { m.mute() }
func (m *MemorySource) Unmute()      { m.unmute() }
func (m *MemorySource) IsMuted() bool { return m.isMuted() }

func (m *MemorySource) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts++
	m.pos = 0
	m.closed = false
	return nil
}

// Restarts reports how many times Restart has been called, for test
// assertions on RestartableSource's retry bookkeeping.
func (m *MemorySource) Restarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

func (m *MemorySource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
