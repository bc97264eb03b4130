package pipeline

import (
	"context"
	"time"

	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/recognizer"
	"github.com/voxloop/listener/pkg/stt"
)

// MinAudioSize is the §4.6 MIN_AUDIO_SIZE discard threshold: a
// non-streaming clip shorter than this is dropped rather than sent to
// STT.
const MinAudioSize = 500 * time.Millisecond

// WakewordGatingFunc reports whether wake-word gating is currently
// active; when it is not (continuous-mode listening), an empty STT
// result must not produce a speech.recognition.unknown event, since
// every frame of ambient noise would otherwise fire one.
type WakewordGatingFunc func() bool

// Consumer drains a Queue, invokes STT, and emits bus events on the
// result. It owns the actual calls into stt.Adapter/StreamingProvider,
// matching spec.md §4.6's split of "producer owns C1/C4" from
// "consumer invokes transcribe".
type Consumer struct {
	queue   *Queue
	stt     *stt.Holder
	emitter recognizer.Emitter
	log     logging.Logger

	lang          string
	sampleRate    int
	unmute        func()
	gatingEnabled WakewordGatingFunc
}

// NewConsumer builds a Consumer. unmute is called when a clip is
// discarded for being under MinAudioSize (§4.6: "the mic is unmuted").
// gatingEnabled may be nil, meaning gating is always considered on.
func NewConsumer(queue *Queue, adapter *stt.Holder, emitter recognizer.Emitter, log logging.Logger, lang string, sampleRate int, unmute func(), gatingEnabled WakewordGatingFunc) *Consumer {
	if emitter == nil {
		emitter = noopConsumerEmitter{}
	}
	if log == nil {
		log = logging.NoOpLogger{}
	}
	if unmute == nil {
		unmute = func() {}
	}
	return &Consumer{
		queue:         queue,
		stt:           adapter,
		emitter:       emitter,
		log:           log,
		lang:          lang,
		sampleRate:    sampleRate,
		unmute:        unmute,
		gatingEnabled: gatingEnabled,
	}
}

type noopConsumerEmitter struct{}

func (noopConsumerEmitter) Emit(string, map[string]interface{}) {}

// Run drains the queue until ctx is done or the queue is closed.
func (c *Consumer) Run(ctx context.Context) error {
	done := ctx.Done()
	for {
		item, ok := c.queue.recv(done)
		if !ok {
			return ctx.Err()
		}
		switch item.Kind {
		case ItemAudio:
			c.handleAudio(ctx, item)
		case ItemStreamStart:
			c.handleStreamStart(ctx)
		case ItemStreamData:
			c.handleStreamData(item)
		case ItemStreamStop:
			c.handleStreamStop()
		}
	}
}

func (c *Consumer) handleAudio(ctx context.Context, item Item) {
	if !c.stt.Get().CanStream() && item.Clip.Duration() < MinAudioSize.Seconds() {
		c.log.Warn("pipeline: discarding short clip", "duration_sec", item.Clip.Duration())
		c.unmute()
		return
	}
	results, err := c.stt.Get().Execute(ctx, item.Clip.Data, item.Clip.SampleRate, c.lang)
	if err != nil {
		c.log.Error("pipeline: stt execute failed", "err", err)
		c.reportResults(nil, item.Context)
		return
	}
	c.reportResults(results, item.Context)
}

func (c *Consumer) handleStreamStart(ctx context.Context) {
	sp := c.stt.Get().Streaming()
	if sp == nil {
		c.log.Warn("pipeline: StreamStart with no streaming provider active")
		return
	}
	if err := sp.StreamStart(ctx, c.sampleRate, c.lang); err != nil {
		c.log.Error("pipeline: stream start failed", "err", err)
	}
}

func (c *Consumer) handleStreamData(item Item) {
	defer c.queue.drained(len(item.Bytes))
	sp := c.stt.Get().Streaming()
	if sp == nil {
		return
	}
	if err := sp.StreamData(item.Bytes); err != nil {
		c.log.Warn("pipeline: stream data failed", "err", err)
	}
}

func (c *Consumer) handleStreamStop() {
	sp := c.stt.Get().Streaming()
	if sp == nil {
		return
	}
	results, err := sp.StreamStop()
	if err != nil {
		c.log.Error("pipeline: stream stop failed", "err", err)
		c.reportResults(nil, nil)
		return
	}
	c.reportResults(results, nil)
}

func (c *Consumer) reportResults(results []stt.Result, context map[string]interface{}) {
	if len(results) == 0 {
		if c.gatingEnabled == nil || c.gatingEnabled() {
			c.emitter.Emit(TopicUnknown, nil)
		}
		return
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	msg := UtteranceMessage{Utterances: texts, Lang: c.lang, Ident: NewIdent(texts[0]), Context: context}
	c.emitter.Emit(TopicUtterance, msg.Data())
}
