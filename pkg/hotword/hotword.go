// Package hotword implements C3, the hot-word engine set: pluggable
// wake-word detectors fed every audio frame, periodically point-queried
// over a trailing window by the recognizer (C4).
//
// Grounded on the reference corpus's HotWordFactory plugin dispatch
// (load-by-name with a fallback to a dummy/default engine) and on the
// teacher's RMSVAD hysteresis math, generalized from a single VAD
// provider into a named set of independently-configured engines.
package hotword

import "time"

// SecBetweenChecks is how often the recognizer calls FoundWakeWord on
// each active engine, per spec.md §4.3.
const SecBetweenChecks = 200 * time.Millisecond

// Engine is a single hot-word/wake-word detector.
type Engine interface {
	// Update feeds one streaming frame of PCM audio.
	Update(frame []byte)
	// FoundWakeWord is a point query over the given recent window of PCM
	// audio (the last TestWWSec of capture).
	FoundWakeWord(window []byte) bool
	// Reset clears any accumulated detection state, e.g. after a match.
	Reset()
}

// Spec describes one configured hot-word entry, mirroring spec.md's
// HotwordSpec data-model type.
type Spec struct {
	Name      string
	EngineID  string
	Active    bool
	Listen    bool // a "listen" hot-word opens an utterance; others just emit an event
	Utterance string
	Sound     string
	Phonemes  string
	Config    map[string]interface{}
}

// TestWWSec computes TEST_WW_SEC = max(10, longest_phoneme_count) *
// phoneme_duration_ms / 1000, per spec.md §4.3. phonemeDurationMS
// defaults to 120 if zero.
func TestWWSec(longestPhonemeCount int, phonemeDurationMS int) float64 {
	if phonemeDurationMS <= 0 {
		phonemeDurationMS = 120
	}
	count := longestPhonemeCount
	if count < 10 {
		count = 10
	}
	return float64(count) * float64(phonemeDurationMS) / 1000
}
