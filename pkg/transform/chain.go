package transform

import (
	"sort"
	"sync"

	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/audio"
)

// Chain runs a set of Transformers in ascending Priority order, feeding
// every registered transformer on each call and merging per-transformer
// context deltas on OnSpeechEnd. A panicking or erroring transformer is
// logged and skipped — it must never abort feeding or finalizing the
// rest of the chain.
type Chain struct {
	log logging.Logger

	mu           sync.Mutex
	transformers []Transformer
}

// NewChain builds an empty Chain. log may be nil, in which case failures
// are discarded silently.
func NewChain(log logging.Logger) *Chain {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Chain{log: log}
}

// Add registers a transformer and keeps the chain sorted by priority.
func (c *Chain) Add(t Transformer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transformers = append(c.transformers, t)
	sort.SliceStable(c.transformers, func(i, j int) bool {
		return c.transformers[i].Priority() < c.transformers[j].Priority()
	})
}

func (c *Chain) snapshot() []Transformer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transformer, len(c.transformers))
	copy(out, c.transformers)
	return out
}

// FeedAudio dispatches a frame to every transformer's OnAudio.
func (c *Chain) FeedAudio(frame audio.Frame) {
	for _, t := range c.snapshot() {
		c.safeCall(t, func() { t.OnAudio(frame) })
	}
}

// FeedHotword dispatches a frame to every transformer's OnHotword.
func (c *Chain) FeedHotword(frame audio.Frame) {
	for _, t := range c.snapshot() {
		c.safeCall(t, func() { t.OnHotword(frame) })
	}
}

// FeedSpeech dispatches a frame to every transformer's OnSpeech.
func (c *Chain) FeedSpeech(frame audio.Frame) {
	for _, t := range c.snapshot() {
		c.safeCall(t, func() { t.OnSpeech(frame) })
	}
}

// Finalize runs every transformer's OnSpeechEnd in priority order,
// threading the (possibly rewritten) clip from one transformer to the
// next, and merges their context deltas. A transformer that errors or
// panics is skipped; its predecessor's clip output is kept unchanged and
// its context delta is omitted.
func (c *Chain) Finalize(clip audio.Clip) (audio.Clip, map[string]interface{}) {
	merged := map[string]interface{}{}

	for _, t := range c.snapshot() {
		var (
			nextClip audio.Clip
			delta    map[string]interface{}
			err      error
			ok       bool
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Warn("transform: transformer panicked, skipping", "transformer", t.Name(), "panic", r)
				}
			}()
			nextClip, delta, err = t.OnSpeechEnd(clip)
			ok = err == nil
		}()

		if !ok {
			c.log.Warn("transform: transformer failed, skipping", "transformer", t.Name(), "err", err)
			continue
		}

		clip = nextClip
		merged = mergeDict(merged, delta)
	}

	return clip, merged
}

func (c *Chain) safeCall(t Transformer, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("transform: transformer panicked, skipping", "transformer", t.Name(), "panic", r)
		}
	}()
	fn()
}

// mergeDict merges b into a. On key collision, b wins unless both values
// are slices, in which case they are concatenated — the same semantics
// as the reference corpus's merge_dict helper.
func mergeDict(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			if merged, ok := concatSlices(existing, v); ok {
				out[k] = merged
				continue
			}
		}
		out[k] = v
	}
	return out
}

func concatSlices(a, b interface{}) (interface{}, bool) {
	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if !aok || !bok {
		return nil, false
	}
	out := make([]interface{}, 0, len(as)+len(bs))
	out = append(out, as...)
	out = append(out, bs...)
	return out, true
}
