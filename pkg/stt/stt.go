// Package stt implements C5, the STT adapter: a uniform batch/streaming
// contract over pluggable providers, with primary-module + fallback
// selection and language normalization.
//
// Grounded on the reference corpus's HTTP-backed STT providers
// (pkg/providers/stt/{groq,deepgram,assemblyai,openai}.go) for the
// concrete transport shapes, and on neon_speech/stt.py's module-load /
// fallback selection for the Adapter's construction rule.
package stt

import "context"

// Result is one candidate transcription with a confidence score.
type Result struct {
	Text       string
	Confidence float64
}

// Provider is the batch STT contract: a single blocking call that
// transcribes a complete clip.
type Provider interface {
	Name() string
	Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error)
}

// StreamingProvider additionally supports incremental streaming
// transcription, with a results-ready signal the plugin can set when it
// detects end-of-speech server-side (e.g. Deepgram's is_final event).
type StreamingProvider interface {
	Provider
	CanStream() bool
	StreamStart(ctx context.Context, sampleRate int, lang string) error
	StreamData(pcm []byte) error
	StreamStop() ([]Result, error)
	// ResultsReady returns a channel that is closed (or receives) when
	// the plugin has a result ready before the caller calls StreamStop,
	// letting C4 end the recording early.
	ResultsReady() <-chan struct{}
}
