package pipeline

import "github.com/voxloop/listener/pkg/audio"

// Producer adapts the recognizer's Sink calls onto a Queue. It is
// passed to recognizer.NewRecognizer as the Sink; the recognizer itself
// owns C1 (the mic source) and C4 (the state machine) and runs in its
// own goroutine, so Producer's only job is the hand-off onto the queue.
type Producer struct {
	queue *Queue
}

// NewProducer builds a Producer that pushes onto queue.
func NewProducer(queue *Queue) *Producer {
	return &Producer{queue: queue}
}

func (p *Producer) Audio(clip audio.Clip, context map[string]interface{}) {
	p.queue.PushAudio(clip, context)
}

func (p *Producer) StreamStart() {
	p.queue.PushStreamStart()
}

func (p *Producer) StreamData(pcm []byte) {
	p.queue.PushStreamData(pcm)
}

func (p *Producer) StreamStop() {
	p.queue.PushStreamStop()
}
