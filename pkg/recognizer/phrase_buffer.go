package recognizer

import "sync"

// maxWWFrames is the cap on the ww_frames deque (§3: "last ≤ 7 frames").
const maxWWFrames = 7

// SavedWWSec sizes the rolling wake-word search buffer. Not specified by
// name in spec.md beyond "capped at SAVED_WW_SEC * sample_rate *
// sample_width"; chosen large enough to always cover hotword.TestWWSec's
// worst case (longest_phoneme_count frames at phoneme_duration_ms each)
// with headroom, and recorded as an open-question resolution in
// DESIGN.md.
const SavedWWSec = 2.0

// PhraseBuffer is the rolling buffer searched for wake-words, plus the
// short ww_frames deque carried across the ListeningForWakeword ->
// Recording transition so the phrase includes audio from just before the
// wake-word was confirmed.
type PhraseBuffer struct {
	mu       sync.Mutex
	rolling  []byte
	capBytes int
	wwFrames [][]byte
}

// NewPhraseBuffer builds a PhraseBuffer sized for the given audio format.
func NewPhraseBuffer(sampleRate, sampleWidth int) *PhraseBuffer {
	return &PhraseBuffer{capBytes: int(SavedWWSec * float64(sampleRate*sampleWidth))}
}

// Observe appends a newly captured frame to both the rolling search
// buffer and the ww_frames deque.
func (p *PhraseBuffer) Observe(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rolling = append(p.rolling, frame...)
	if len(p.rolling) > p.capBytes {
		p.rolling = p.rolling[len(p.rolling)-p.capBytes:]
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)
	p.wwFrames = append(p.wwFrames, cp)
	if len(p.wwFrames) > maxWWFrames {
		p.wwFrames = p.wwFrames[len(p.wwFrames)-maxWWFrames:]
	}
}

// Window returns the last dur seconds of the rolling search buffer (or
// everything available if shorter).
func (p *PhraseBuffer) Window(dur float64, sampleRate, sampleWidth int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	need := int(dur * float64(sampleRate*sampleWidth))
	if need <= 0 || need >= len(p.rolling) {
		out := make([]byte, len(p.rolling))
		copy(out, p.rolling)
		return out
	}
	out := make([]byte, need)
	copy(out, p.rolling[len(p.rolling)-need:])
	return out
}

// FlushWWFrames returns the concatenated ww_frames deque (oldest first)
// to be prepended to a freshly opened phrase, and clears both the deque
// and the rolling search buffer.
func (p *PhraseBuffer) FlushWWFrames() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, 0)
	for _, f := range p.wwFrames {
		out = append(out, f...)
	}
	p.wwFrames = nil
	p.rolling = nil
	return out
}
