// Package transform implements C2, the audio transformer chain: an
// ordered sequence of plugins that observe raw/hotword/speech audio and,
// once a phrase closes, may rewrite the clip and contribute context
// fields to the outgoing utterance message.
//
// Grounded on the reference corpus's AudioTransformersService
// (feed_audio/feed_hotword/feed_speech/get_context), generalized from a
// plugin-discovery service into an explicit, priority-ordered Go chain.
package transform

import (
	"github.com/voxloop/listener/pkg/audio"
)

// Transformer is a single audio-transformer-chain plugin.
type Transformer interface {
	// Name identifies the transformer in logs and context-delta merges.
	Name() string
	// Priority orders execution; the chain runs in ascending order.
	Priority() int

	// OnAudio is called for every frame outside both hotword detection
	// and phrase recording.
	OnAudio(frame audio.Frame)
	// OnHotword is called once, with the frame on which a hot-word match
	// or a manual listen trigger opened a phrase recording.
	OnHotword(frame audio.Frame)
	// OnSpeech is called for every frame during phrase recording.
	OnSpeech(frame audio.Frame)
	// OnSpeechEnd is called once when a phrase closes. It may return a
	// rewritten clip and a context delta to merge into the outgoing
	// utterance message.
	OnSpeechEnd(clip audio.Clip) (audio.Clip, map[string]interface{}, error)
}
