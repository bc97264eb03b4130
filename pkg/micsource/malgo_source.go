package micsource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/listener/pkg/audio"
)

// MalgoSource is a real microphone Source backed by gen2brain/malgo,
// generalized from the teacher's duplex capture+playback device in
// cmd/agent/main.go down to a capture-only device (this module has no
// playback surface — mute_during_output coordinates with an external
// player instead of owning one).
type MalgoSource struct {
	muteCounter

	sampleRate  int
	sampleWidth int
	chunk       int

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	frames    chan []byte
	overflown int32

	mu     sync.Mutex
	closed bool
}

// NewMalgoSource builds a capture-only Source at the given sample rate.
// sampleWidth is fixed at 2 (16-bit PCM); malgo.FormatS16 is the only
// format this module decodes.
func NewMalgoSource(sampleRate int) *MalgoSource {
	return &MalgoSource{
		sampleRate:  sampleRate,
		sampleWidth: 2,
		chunk:       Chunk,
		frames:      make(chan []byte, 8),
	}
}

func (s *MalgoSource) Open() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: init context: %v", ErrAudioIO, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(s.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onData := func(_ []byte, pInput []byte, _ uint32) {
		if pInput == nil {
			return
		}
		buf := make([]byte, len(pInput))
		copy(buf, pInput)
		select {
		case s.frames <- buf:
		default:
			atomic.StoreInt32(&s.overflown, 1)
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		mctx.Uninit()
		return fmt.Errorf("%w: init device: %v", ErrAudioIO, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return fmt.Errorf("%w: start device: %v", ErrAudioIO, err)
	}

	s.mu.Lock()
	s.mctx = mctx
	s.device = device
	s.closed = false
	s.mu.Unlock()

	return nil
}

func (s *MalgoSource) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if atomic.CompareAndSwapInt32(&s.overflown, 1, 0) {
		return audio.Frame{}, ErrOverflow
	}

	want := s.chunk * s.sampleWidth
	buf := make([]byte, 0, want)

	for len(buf) < want {
		select {
		case <-ctx.Done():
			return audio.Frame{}, ctx.Err()
		case chunk, ok := <-s.frames:
			if !ok {
				return audio.Frame{}, ErrClosed
			}
			buf = append(buf, chunk...)
		}
	}
	buf = buf[:want]

	if s.isMuted() {
		buf = make([]byte, want)
	}

	return audio.Frame{
		Data:        buf,
		SampleRate:  s.sampleRate,
		SampleWidth: s.sampleWidth,
		Channels:    1,
	}, nil
}

func (s *MalgoSource) Mute()        { s.mute() }
func (s *MalgoSource) Unmute()      { s.unmute() }
func (s *MalgoSource) IsMuted() bool { return s.isMuted() }

// Restart tears down and re-acquires the underlying device, used by
// RestartableSource after a classified-recoverable I/O error.
func (s *MalgoSource) Restart() error {
	s.Close()
	return s.Open()
}

func (s *MalgoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	if s.mctx != nil {
		s.mctx.Uninit()
		s.mctx = nil
	}
	return nil
}
