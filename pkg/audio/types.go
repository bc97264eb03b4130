// Package audio holds the raw PCM frame/clip types and the signal-level
// helpers (RMS/dBFS energy, WAV encode/decode, linear resampling) shared
// by every other package in the module.
package audio

import "fmt"

// Frame is one fixed-size chunk of PCM samples as read from a Source.
// len(Data) must equal Chunk*SampleWidth*Channels; producers that hand
// out a Frame with a mismatched length violate that invariant and
// callers are entitled to reject it.
type Frame struct {
	Data        []byte
	SampleRate  int
	SampleWidth int // bytes per sample; 2 for 16-bit PCM
	Channels    int
}

// Validate checks the CHUNK-shape invariant for a frame produced with a
// known chunk size.
func (f Frame) Validate(chunk int) error {
	want := chunk * f.SampleWidth * f.Channels
	if len(f.Data) != want {
		return fmt.Errorf("audio: frame has %d bytes, want %d (chunk=%d width=%d channels=%d)",
			len(f.Data), want, chunk, f.SampleWidth, f.Channels)
	}
	return nil
}

// Clip is a variable-length concatenation of frames with the same
// format — the unit a recognizer hands to an STT adapter once a phrase
// has been finalized.
type Clip struct {
	Data        []byte
	SampleRate  int
	SampleWidth int // bytes per sample; 2 for 16-bit PCM
}

// Duration returns the clip's length in seconds given its sample rate
// and width. Returns 0 if either is unset.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 || c.SampleWidth <= 0 {
		return 0
	}
	frames := len(c.Data) / c.SampleWidth
	return float64(frames) / float64(c.SampleRate)
}

// Append returns a new Clip with f's data appended. Panics-free even if
// c is the zero value, adopting f's format.
func (c Clip) Append(f Frame) Clip {
	if c.SampleRate == 0 {
		c.SampleRate = f.SampleRate
		c.SampleWidth = f.SampleWidth
	}
	c.Data = append(append([]byte(nil), c.Data...), f.Data...)
	return c
}
