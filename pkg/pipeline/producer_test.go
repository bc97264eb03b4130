package pipeline

import "testing"

func TestProducerForwardsSinkCallsToQueue(t *testing.T) {
	q := NewQueue(16000, 2, nil)
	p := NewProducer(q)

	p.Audio(fakeClip(320), map[string]interface{}{"a": 1})
	p.StreamStart()
	p.StreamData(make([]byte, 10))
	p.StreamStop()

	wantKinds := []ItemKind{ItemAudio, ItemStreamStart, ItemStreamData, ItemStreamStop}
	for i, want := range wantKinds {
		item, ok := q.recv(nil)
		if !ok {
			t.Fatalf("expected item %d", i)
		}
		if item.Kind != want {
			t.Fatalf("item %d: got kind %v, want %v", i, item.Kind, want)
		}
	}
}
