package stt

import "errors"

// Sentinel errors surfaced by the adapter and its providers, composed
// with fmt.Errorf("...: %w", err) at the call site.
var (
	// ErrPluginLoad wraps a failure constructing a provider from the
	// registry (an unregistered module name, or a factory error).
	ErrPluginLoad = errors.New("stt: plugin failed to load")
	// ErrPluginRuntime wraps a failure the provider itself returns while
	// actually transcribing, as opposed to while loading.
	ErrPluginRuntime = errors.New("stt: plugin runtime error")
	// ErrEndOfStream is returned by StreamingProvider.StreamStop to
	// signal a clean end of stream rather than a transcription failure.
	ErrEndOfStream = errors.New("stt: end of stream")
)
