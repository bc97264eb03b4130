package hotword

import (
	"github.com/voxloop/listener/pkg/audio"
)

// RMSEnergyEngine is a lightweight, dependency-free default hot-word
// engine: it flags a window as a match when its RMS energy clears a
// threshold for a confirmed run of consecutive Update calls, the same
// hysteresis the teacher's RMSVAD uses to avoid triggering on a single
// spike or echo-onset pop. It is not a real wake-word recognizer — word
// identity is outside its scope — so it is registered under the name
// "energy" as the documented default, matching spec.md §4.3's provision
// for a "dummy"/fallback engine when no real model is configured.
type RMSEnergyEngine struct {
	threshold    float64
	minConfirmed int

	consecutive int
	confirmed   bool
	updated     bool
}

// NewRMSEnergyEngine builds an engine that confirms a match after
// minConfirmed consecutive frames above threshold.
func NewRMSEnergyEngine(threshold float64, minConfirmed int) *RMSEnergyEngine {
	if minConfirmed <= 0 {
		minConfirmed = 7
	}
	return &RMSEnergyEngine{threshold: threshold, minConfirmed: minConfirmed}
}

func (e *RMSEnergyEngine) Update(frame []byte) {
	e.updated = true
	rms := audio.RMS(frame)
	if rms > e.threshold {
		e.consecutive++
		if e.consecutive >= e.minConfirmed {
			e.confirmed = true
		}
	} else {
		e.consecutive = 0
	}
}

func (e *RMSEnergyEngine) FoundWakeWord(window []byte) bool {
	if e.confirmed {
		return true
	}
	if e.updated {
		return false
	}
	// A point query with no prior streaming Update calls: fall back to
	// evaluating the window directly, so a fresh engine can still answer
	// a cold FoundWakeWord call in tests.
	return audio.RMS(window) > e.threshold
}

func (e *RMSEnergyEngine) Reset() {
	e.consecutive = 0
	e.confirmed = false
}
