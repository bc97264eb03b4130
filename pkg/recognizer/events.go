package recognizer

import "github.com/voxloop/listener/pkg/audio"

// Bus event topics the recognizer emits, per spec.md §6.
const (
	TopicRecordBegin = "recognizer_loop:record_begin"
	TopicRecordEnd   = "recognizer_loop:record_end"
	TopicHotword     = "recognizer_loop:hotword"
	TopicWakeword    = "recognizer_loop:wakeword"
	TopicAwoken      = "recognizer_loop:awoken"
)

// Emitter publishes recognizer_loop:* bus events. Implemented by the bus
// client (C7); a nil Emitter passed to NewRecognizer is replaced with a
// no-op implementation.
type Emitter interface {
	Emit(topic string, data map[string]interface{})
}

type noopEmitter struct{}

func (noopEmitter) Emit(string, map[string]interface{}) {}

// Sink receives the tagged items the recognizer hands to the C6 queue:
// a finished phrase, or the three streaming-mode markers.
type Sink interface {
	Audio(clip audio.Clip, context map[string]interface{})
	StreamStart()
	StreamData(pcm []byte)
	StreamStop()
}
