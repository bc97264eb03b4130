package transform

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voxloop/listener/pkg/audio"
)

// SilenceTrimmer trims leading/trailing silence from a finalized phrase
// at a threshold of the tracked ambient noise floor plus 10 dB, then
// applies gain to reach a target loudness (default -18 dBFS). The
// trimmed, normalized clip is written to a temporary WAV file and its
// path is attached to the context delta as audio_filename, the way the
// reference corpus's transformer pipeline hands a rewritten AudioData
// back to the caller alongside a plugin-contributed data dict.
type SilenceTrimmer struct {
	priority    int
	targetDBFS  float64
	windowBytes int // analysis window size in bytes, ~10ms at 16kHz/16-bit
	tempDir     string

	mu    sync.Mutex
	floor float64 // EMA of ambient RMS dBFS, seeded to a quiet-room default
}

// NewSilenceTrimmer builds a trimmer at the given chain priority,
// writing temp WAVs under tempDir (os.TempDir() if empty).
func NewSilenceTrimmer(priority int, tempDir string) *SilenceTrimmer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &SilenceTrimmer{
		priority:    priority,
		targetDBFS:  -18,
		windowBytes: 320, // 160 samples * 2 bytes, 10ms at 16kHz
		tempDir:     tempDir,
		floor:       -60,
	}
}

func (s *SilenceTrimmer) Name() string  { return "silence_trimmer" }
func (s *SilenceTrimmer) Priority() int { return s.priority }

func (s *SilenceTrimmer) OnAudio(frame audio.Frame) {
	db := audio.ClampDBFS(audio.DBFS(audio.RMS(frame.Data)), -90)
	s.mu.Lock()
	// Exponential moving average with a slow time constant, so a single
	// loud ambient frame doesn't immediately raise the floor.
	s.floor = s.floor*0.95 + db*0.05
	s.mu.Unlock()
}

func (s *SilenceTrimmer) OnHotword(audio.Frame) {}
func (s *SilenceTrimmer) OnSpeech(audio.Frame)  {}

func (s *SilenceTrimmer) OnSpeechEnd(clip audio.Clip) (audio.Clip, map[string]interface{}, error) {
	s.mu.Lock()
	threshold := s.floor + 10
	s.mu.Unlock()

	trimmed := s.trim(clip.Data, threshold)
	normalized := s.normalize(trimmed)

	out := audio.Clip{Data: normalized, SampleRate: clip.SampleRate, SampleWidth: clip.SampleWidth}

	path, err := s.writeTempWAV(out)
	if err != nil {
		return clip, nil, fmt.Errorf("silence_trimmer: write temp wav: %w", err)
	}

	return out, map[string]interface{}{"audio_filename": path}, nil
}

// trim removes leading/trailing windows whose RMS dBFS is below
// threshold, leaving interior silence (mid-phrase pauses) untouched.
func (s *SilenceTrimmer) trim(pcm []byte, threshold float64) []byte {
	w := s.windowBytes
	if w < 2 || len(pcm) < w {
		return pcm
	}

	start := 0
	for start+w <= len(pcm) {
		db := audio.ClampDBFS(audio.DBFS(audio.RMS(pcm[start:start+w])), -90)
		if db >= threshold {
			break
		}
		start += w
	}

	end := len(pcm)
	for end-w >= start {
		db := audio.ClampDBFS(audio.DBFS(audio.RMS(pcm[end-w:end])), -90)
		if db >= threshold {
			break
		}
		end -= w
	}

	if start >= end {
		return pcm // everything below threshold; don't return an empty clip
	}
	return pcm[start:end]
}

// normalize applies a single gain factor so the clip's overall RMS
// reaches s.targetDBFS, clamping individual samples at int16 range.
func (s *SilenceTrimmer) normalize(pcm []byte) []byte {
	rms := audio.RMS(pcm)
	if rms <= 0 {
		return pcm
	}
	currentDBFS := audio.DBFS(rms)
	gainDB := s.targetDBFS - currentDBFS
	gain := dbToLinear(gainDB)

	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | (int16(pcm[i+1]) << 8)
		scaled := float64(sample) * gain
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		v := int16(scaled)
		out[i] = byte(v)
		out[i+1] = byte(v >> 8)
	}
	return out
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func (s *SilenceTrimmer) writeTempWAV(clip audio.Clip) (string, error) {
	name := fmt.Sprintf("utterance_%d.wav", time.Now().UnixNano())
	path := filepath.Join(s.tempDir, name)
	data := audio.EncodeWAV(clip.Data, clip.SampleRate, clip.SampleWidth)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
