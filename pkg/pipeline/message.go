package pipeline

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Bus topics the consumer emits directly, distinct from the
// recognizer_loop:record_begin/record_end/hotword/wakeword/awoken set
// C4 owns (pkg/recognizer/events.go).
const (
	TopicUnknown   = "recognizer_loop:speech.recognition.unknown"
	TopicUtterance = "recognizer_loop:utterance"
)

// UtteranceMessage is the payload of a recognizer_loop:utterance event:
// one or more candidate transcriptions plus the language, a unique
// per-utterance ident, and whatever context accompanied the originating
// clip (profile, session, etc.), nested under "context" rather than
// flattened onto the top level, matching spec.md §3's
// {utterances, lang, ident, context} shape.
type UtteranceMessage struct {
	Utterances []string
	Lang       string
	Ident      string
	Context    map[string]interface{}
}

// NewIdent builds the "unique per utterance (time+hash)" ident, mirroring
// the original's str(stopwatch.timestamp) + str(hash(transcription[0])).
func NewIdent(text string) string {
	h := fnv.New32a()
	h.Write([]byte(text))
	return fmt.Sprintf("%d%d", time.Now().UnixNano(), h.Sum32())
}

// Data converts the message into the map shape bus.Client.Emit
// sends as a message's data field.
func (m UtteranceMessage) Data() map[string]interface{} {
	ident := m.Ident
	if ident == "" {
		var first string
		if len(m.Utterances) > 0 {
			first = m.Utterances[0]
		}
		ident = NewIdent(first)
	}
	ctx := m.Context
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	return map[string]interface{}{
		"utterances": m.Utterances,
		"lang":       m.Lang,
		"ident":      ident,
		"context":    ctx,
	}
}
