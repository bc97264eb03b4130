package transform

import (
	"errors"
	"testing"

	"github.com/voxloop/listener/pkg/audio"
)

type fakeTransformer struct {
	name     string
	priority int
	calls    *[]string
	failEnd  bool
	delta    map[string]interface{}
}

func (f *fakeTransformer) Name() string  { return f.name }
func (f *fakeTransformer) Priority() int { return f.priority }
func (f *fakeTransformer) OnAudio(audio.Frame) { *f.calls = append(*f.calls, f.name+":audio") }
func (f *fakeTransformer) OnHotword(audio.Frame) { *f.calls = append(*f.calls, f.name+":hotword") }
func (f *fakeTransformer) OnSpeech(audio.Frame) { *f.calls = append(*f.calls, f.name+":speech") }
func (f *fakeTransformer) OnSpeechEnd(clip audio.Clip) (audio.Clip, map[string]interface{}, error) {
	*f.calls = append(*f.calls, f.name+":end")
	if f.failEnd {
		return clip, nil, errors.New("boom")
	}
	return clip, f.delta, nil
}

func TestChainRunsInPriorityOrder(t *testing.T) {
	var calls []string
	c := NewChain(nil)
	c.Add(&fakeTransformer{name: "b", priority: 2, calls: &calls})
	c.Add(&fakeTransformer{name: "a", priority: 1, calls: &calls})

	c.FeedAudio(audio.Frame{})

	if len(calls) != 2 || calls[0] != "a:audio" || calls[1] != "b:audio" {
		t.Fatalf("expected priority order a,b; got %v", calls)
	}
}

func TestChainFinalizeMergesDeltasLaterWins(t *testing.T) {
	var calls []string
	c := NewChain(nil)
	c.Add(&fakeTransformer{name: "first", priority: 1, calls: &calls, delta: map[string]interface{}{"k": "first"}})
	c.Add(&fakeTransformer{name: "second", priority: 2, calls: &calls, delta: map[string]interface{}{"k": "second"}})

	_, merged := c.Finalize(audio.Clip{})
	if merged["k"] != "second" {
		t.Errorf("merged[k] = %v, want second (later wins)", merged["k"])
	}
}

func TestChainFinalizeConcatenatesListDeltas(t *testing.T) {
	c := NewChain(nil)
	c.Add(&fakeTransformer{name: "a", priority: 1, calls: &[]string{}, delta: map[string]interface{}{"tags": []interface{}{"x"}}})
	c.Add(&fakeTransformer{name: "b", priority: 2, calls: &[]string{}, delta: map[string]interface{}{"tags": []interface{}{"y"}}})

	_, merged := c.Finalize(audio.Clip{})
	tags, ok := merged["tags"].([]interface{})
	if !ok || len(tags) != 2 {
		t.Fatalf("expected concatenated 2-element tags list, got %v", merged["tags"])
	}
}

func TestChainFinalizeSkipsFailingTransformer(t *testing.T) {
	var calls []string
	c := NewChain(nil)
	c.Add(&fakeTransformer{name: "bad", priority: 1, calls: &calls, failEnd: true})
	c.Add(&fakeTransformer{name: "good", priority: 2, calls: &calls, delta: map[string]interface{}{"ok": true}})

	_, merged := c.Finalize(audio.Clip{})
	if merged["ok"] != true {
		t.Errorf("expected the chain to continue past a failing transformer, got %v", merged)
	}
}
