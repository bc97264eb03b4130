package recognizer

import (
	"math"

	"github.com/voxloop/listener/pkg/audio"
)

// Defaults for the loudness heuristics, per spec.md §4.4.
const (
	DefaultDamping    = 0.15
	DefaultMultiplier = 1.0
	DefaultEnergyRatio = 1.5

	noiseFloorIncreasePerSec = 200.0
	noiseFloorDecreasePerSec = 100.0
	noiseFloorCap            = 25.0
)

// EnergyTracker maintains the rolling energy_threshold and noise-floor
// counter used to classify frames as loud or quiet.
type EnergyTracker struct {
	Damping     float64
	Multiplier  float64
	EnergyRatio float64

	threshold  float64
	noiseFloor float64
}

// NewEnergyTracker builds a tracker; a non-positive parameter falls back
// to its documented default.
func NewEnergyTracker(damping, multiplier, energyRatio float64) *EnergyTracker {
	if damping <= 0 {
		damping = DefaultDamping
	}
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	if energyRatio <= 0 {
		energyRatio = DefaultEnergyRatio
	}
	return &EnergyTracker{Damping: damping, Multiplier: multiplier, EnergyRatio: energyRatio}
}

// Observe reports whether one frame of duration chunkSec is "loud"
// against the threshold carried over from earlier frames, then folds the
// frame into the threshold and the noise-floor counter.
func (e *EnergyTracker) Observe(pcm []byte, chunkSec float64) (energy float64, loud bool) {
	energy = audio.RMS(pcm)
	loud = energy > e.threshold*e.Multiplier
	decay := math.Pow(e.Damping, chunkSec)
	e.threshold = decay*e.threshold + (1-e.Damping)*energy*e.EnergyRatio

	if loud {
		e.noiseFloor += noiseFloorIncreasePerSec * chunkSec
		if e.noiseFloor > noiseFloorCap {
			e.noiseFloor = noiseFloorCap
		}
	} else {
		e.noiseFloor -= noiseFloorDecreasePerSec * chunkSec
		if e.noiseFloor < 0 {
			e.noiseFloor = 0
		}
	}
	return energy, loud
}

// QuietEnough reports whether the noise-floor counter has fully decayed,
// i.e. the trailing window has been quiet.
func (e *EnergyTracker) QuietEnough() bool { return e.noiseFloor <= 0 }

func (e *EnergyTracker) Threshold() float64  { return e.threshold }
func (e *EnergyTracker) NoiseFloor() float64 { return e.noiseFloor }

// Reset clears the threshold and noise-floor counter back to zero.
func (e *EnergyTracker) Reset() {
	e.threshold = 0
	e.noiseFloor = 0
}
