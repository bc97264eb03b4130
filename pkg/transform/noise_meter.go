package transform

import (
	"sync"
	"time"

	"github.com/voxloop/listener/pkg/audio"
)

const (
	noiseWindow        = 5 * time.Second
	hotwordExclusion    = 700 * time.Millisecond
)

type noiseSample struct {
	at  time.Time
	db  float64
}

// NoiseMeter maintains a rolling window (≤5s) of ambient RMS readings
// taken outside hot-word/speech activity, excluding the ~0.7s
// immediately before a wake-word was detected (those frames are already
// biased by the onset of speech, not ambient noise), and reports the
// average as noise_level in the context delta.
type NoiseMeter struct {
	priority int

	mu         sync.Mutex
	samples    []noiseSample
	hotwordAt  time.Time
}

// NewNoiseMeter builds a noise meter at the given chain priority.
func NewNoiseMeter(priority int) *NoiseMeter {
	return &NoiseMeter{priority: priority}
}

func (n *NoiseMeter) Name() string  { return "noise_meter" }
func (n *NoiseMeter) Priority() int { return n.priority }

func (n *NoiseMeter) OnAudio(frame audio.Frame) {
	db := audio.ClampDBFS(audio.DBFS(audio.RMS(frame.Data)), -90)
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.samples = append(n.samples, noiseSample{at: now, db: db})
	n.evictLocked(now)
}

func (n *NoiseMeter) OnHotword(audio.Frame) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.hotwordAt.IsZero() {
		n.hotwordAt = time.Now()
	}
}

func (n *NoiseMeter) OnSpeech(audio.Frame) {}

func (n *NoiseMeter) OnSpeechEnd(clip audio.Clip) (audio.Clip, map[string]interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cutoff := n.hotwordAt
	if !cutoff.IsZero() {
		cutoff = cutoff.Add(-hotwordExclusion)
	}

	var sum float64
	var count int
	for _, s := range n.samples {
		if !cutoff.IsZero() && s.at.After(cutoff) {
			continue
		}
		sum += s.db
		count++
	}

	n.samples = nil
	n.hotwordAt = time.Time{}

	if count == 0 {
		return clip, map[string]interface{}{"noise_level": -90.0}, nil
	}
	return clip, map[string]interface{}{"noise_level": sum / float64(count)}, nil
}

func (n *NoiseMeter) evictLocked(now time.Time) {
	cutoff := now.Add(-noiseWindow)
	i := 0
	for i < len(n.samples) && n.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		n.samples = n.samples[i:]
	}
}
