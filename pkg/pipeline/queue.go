// Package pipeline implements C6: the producer/consumer queue that
// decouples the recognizer's frame loop from STT invocation, per
// spec.md §4.6.
package pipeline

import (
	"sync"
	"time"

	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/audio"
)

// ItemKind tags the four item shapes pushed onto the Queue.
type ItemKind int

const (
	ItemAudio ItemKind = iota
	ItemStreamStart
	ItemStreamData
	ItemStreamStop
)

// Item is the tagged union the producer pushes and the consumer drains.
type Item struct {
	Kind    ItemKind
	Clip    audio.Clip
	Context map[string]interface{}
	Bytes   []byte
}

// queueCapacity sizes the backing channel generously so pushing an
// Audio item never blocks the producer in practice; it is not the
// mechanism that bounds memory growth under STT stall (that is the
// StreamData drop rule below).
const queueCapacity = 256

// streamStallBuffer is the buffered-audio threshold (§4.6: "buffering
// > 2s of audio") above which the drop timer starts.
const streamStallBuffer = 2 * time.Second

// streamStallGrace is how long the consumer may stay behind the
// threshold before new StreamData items are dropped (§4.6: "not drained
// within 1s").
const streamStallGrace = 1 * time.Second

// Queue is the bounded channel C6 hands items through, with the
// StreamData back-pressure drop rule applied on push.
type Queue struct {
	items chan Item
	log   logging.Logger

	mu            sync.Mutex
	sampleRate    int
	sampleWidth   int
	bufferedBytes int
	stalledSince  time.Time
}

// NewQueue builds a Queue for audio at the given format, used to convert
// buffered StreamData bytes into a duration for the stall check.
func NewQueue(sampleRate, sampleWidth int, log logging.Logger) *Queue {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Queue{
		items:       make(chan Item, queueCapacity),
		log:         log,
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
	}
}

// PushAudio enqueues a finished phrase clip.
func (q *Queue) PushAudio(clip audio.Clip, context map[string]interface{}) {
	q.items <- Item{Kind: ItemAudio, Clip: clip, Context: context}
}

// PushStreamStart enqueues a stream-start marker.
func (q *Queue) PushStreamStart() {
	q.items <- Item{Kind: ItemStreamStart}
}

// PushStreamStop enqueues a stream-stop marker.
func (q *Queue) PushStreamStop() {
	q.mu.Lock()
	q.bufferedBytes = 0
	q.stalledSince = time.Time{}
	q.mu.Unlock()
	q.items <- Item{Kind: ItemStreamStop}
}

// PushStreamData enqueues a streaming audio chunk, applying the §4.6
// back-pressure rule: once the consumer has let more than
// streamStallBuffer of audio pile up and the backlog has lasted longer
// than streamStallGrace, every further chunk is dropped (and logged)
// until the buffer falls back under streamStallBuffer.
func (q *Queue) PushStreamData(pcm []byte) {
	q.mu.Lock()
	bufferedSec := q.bufferedSeconds()
	now := time.Now()
	if bufferedSec > streamStallBuffer.Seconds() {
		if q.stalledSince.IsZero() {
			q.stalledSince = now
		} else if now.Sub(q.stalledSince) > streamStallGrace {
			q.mu.Unlock()
			q.log.Warn("pipeline: dropping StreamData, consumer has not drained", "buffered_sec", bufferedSec)
			return
		}
	} else {
		q.stalledSince = time.Time{}
	}
	q.bufferedBytes += len(pcm)
	q.mu.Unlock()
	q.items <- Item{Kind: ItemStreamData, Bytes: pcm}
}

func (q *Queue) bufferedSeconds() float64 {
	if q.sampleRate <= 0 || q.sampleWidth <= 0 {
		return 0
	}
	return float64(q.bufferedBytes) / float64(q.sampleRate*q.sampleWidth)
}

// drained records that n bytes of streamed audio have been consumed,
// shrinking the buffered total the stall check measures against.
func (q *Queue) drained(n int) {
	q.mu.Lock()
	q.bufferedBytes -= n
	if q.bufferedBytes < 0 {
		q.bufferedBytes = 0
	}
	q.mu.Unlock()
}

// recv blocks until an item is available, the queue is closed, or ctx
// is done.
func (q *Queue) recv(done <-chan struct{}) (Item, bool) {
	select {
	case item, ok := <-q.items:
		return item, ok
	case <-done:
		return Item{}, false
	}
}

// Close closes the backing channel; callers must stop pushing first.
func (q *Queue) Close() {
	close(q.items)
}
