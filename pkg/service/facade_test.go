package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/voxloop/listener/pkg/audio"
	"github.com/voxloop/listener/pkg/bus"
	"github.com/voxloop/listener/pkg/hotword"
	"github.com/voxloop/listener/pkg/recognizer"
	"github.com/voxloop/listener/pkg/stt"
	"github.com/voxloop/listener/pkg/transform"
)

type fakeBus struct {
	handlers map[string]func(bus.Message)
	emitted  []bus.Message
}

func newFakeBus() *fakeBus { return &fakeBus{handlers: make(map[string]func(bus.Message))} }

func (f *fakeBus) Connect(context.Context) error { return nil }
func (f *fakeBus) On(msgType string, h func(bus.Message)) {
	f.handlers[msgType] = h
}
func (f *fakeBus) Emit(msgType string, data map[string]interface{}) {
	f.emitted = append(f.emitted, bus.Message{Type: msgType, Data: data})
}
func (f *fakeBus) EmitMessage(msg bus.Message) error {
	f.emitted = append(f.emitted, msg)
	return nil
}
func (f *fakeBus) WaitForResponse(context.Context, bus.Message, string, time.Duration) (bus.Message, error) {
	return bus.Message{}, errors.New("not implemented")
}
func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) dispatch(msgType string, msg bus.Message) {
	msg.Type = msgType
	f.handlers[msgType](msg)
}

type batchProvider struct {
	results []stt.Result
	err     error
}

func (p *batchProvider) Name() string { return "batch" }
func (p *batchProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]stt.Result, error) {
	return p.results, p.err
}

func newTestAdapter(t *testing.T, results []stt.Result) *stt.Holder {
	t.Helper()
	r := stt.NewRegistry()
	r.Register("batch", func(map[string]interface{}) (stt.Provider, error) {
		return &batchProvider{results: results}, nil
	})
	a, err := stt.NewAdapter(r, "batch", "", "en-US", nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return stt.NewHolder(a)
}

func wavFixture(t *testing.T) []byte {
	t.Helper()
	return audio.EncodeWAV(make([]byte, 16000), 16000, 2)
}

func newTestFacade(t *testing.T, fb *fakeBus, results []stt.Result) *Facade {
	t.Helper()
	return NewFacade(Config{
		Bus:         fb,
		Adapter:     newTestAdapter(t, results),
		Chain:       transform.NewChain(nil),
		Hotwords:    hotword.NewSet(),
		State:       recognizer.NewListenerState(recognizer.ModeWakeword),
		SampleRate:  16000,
		SampleWidth: 2,
		Lang:        "en-US",
	})
}

func writeWAVFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "service-fixture-*.wav")
	if err != nil {
		t.Fatalf("creating fixture wav: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		t.Fatalf("writing fixture wav: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestHandleGetSTTReturnsTranscripts(t *testing.T) {
	fb := newFakeBus()
	newTestFacade(t, fb, []stt.Result{{Text: "turn on the lights", Confidence: 0.9}})

	path := writeWAVFile(t, wavFixture(t))
	fb.dispatch("neon.get_stt", bus.Message{Data: map[string]interface{}{"audio_file": path}})

	if len(fb.emitted) != 1 {
		t.Fatalf("expected one reply, got %d", len(fb.emitted))
	}
	data := fb.emitted[0].Data
	if fb.emitted[0].Type != "neon.get_stt.response" {
		t.Fatalf("unexpected reply topic: %s", fb.emitted[0].Type)
	}
	transcripts, _ := data["transcripts"].([]string)
	if len(transcripts) != 1 || transcripts[0] != "turn on the lights" {
		t.Fatalf("unexpected transcripts: %+v", data)
	}
}

func TestHandleGetSTTMissingAudioReturnsError(t *testing.T) {
	fb := newFakeBus()
	newTestFacade(t, fb, nil)

	fb.dispatch("neon.get_stt", bus.Message{Data: map[string]interface{}{}})
	if len(fb.emitted) != 1 {
		t.Fatalf("expected one reply")
	}
	if fb.emitted[0].Data["error"] == nil {
		t.Fatalf("expected an error field in the reply")
	}
}

func TestHandleAudioInputEmitsUtteranceAndReplies(t *testing.T) {
	fb := newFakeBus()
	newTestFacade(t, fb, []stt.Result{{Text: "hello"}})

	path := writeWAVFile(t, wavFixture(t))
	fb.dispatch("neon.audio_input", bus.Message{
		Data:    map[string]interface{}{"audio_file": path},
		Context: map[string]interface{}{"session": "s1"},
	})

	if len(fb.emitted) != 2 {
		t.Fatalf("expected an utterance event plus a reply, got %d: %+v", len(fb.emitted), fb.emitted)
	}
	var sawUtterance, sawReply bool
	for _, msg := range fb.emitted {
		if msg.Type == "recognizer_loop:utterance" {
			sawUtterance = true
			if msg.Context["session"] != "s1" {
				t.Errorf("expected context carried on the message, got %+v", msg.Context)
			}
			dest, _ := msg.Context["destination"].([]string)
			if len(dest) != 1 || dest[0] != "skills" {
				t.Errorf("expected destination=[skills], got %+v", msg.Context["destination"])
			}
			timingData, _ := msg.Context["timing"].(map[string]interface{})
			if _, ok := timingData["transcribed"].(float64); !ok {
				t.Errorf("expected context.timing.transcribed to be a float, got %+v", timingData)
			}
		}
		if msg.Type == "neon.audio_input.response" {
			sawReply = true
			if msg.Data["skills_recv"] != true {
				t.Errorf("expected skills_recv true, got %+v", msg.Data)
			}
		}
	}
	if !sawUtterance || !sawReply {
		t.Fatalf("expected both an utterance event and a reply, got %+v", fb.emitted)
	}
}

func TestHandleWakeWordsStateSwitchesListenMode(t *testing.T) {
	fb := newFakeBus()
	f := newTestFacade(t, fb, nil)

	fb.dispatch("neon.wake_words_state", bus.Message{Data: map[string]interface{}{"enabled": false}})
	if f.state.ListenMode() != recognizer.ModeContinuous {
		t.Fatalf("expected ModeContinuous after enabled=false")
	}
	fb.dispatch("neon.wake_words_state", bus.Message{Data: map[string]interface{}{"enabled": true}})
	if f.state.ListenMode() != recognizer.ModeWakeword {
		t.Fatalf("expected ModeWakeword after enabled=true")
	}
}

func TestHandleQueryWakeWordsState(t *testing.T) {
	fb := newFakeBus()
	f := newTestFacade(t, fb, nil)
	f.state.SetListenMode(recognizer.ModeWakeword)

	fb.dispatch("neon.query_wake_words_state", bus.Message{})
	if len(fb.emitted) != 1 || fb.emitted[0].Data["enabled"] != true {
		t.Fatalf("unexpected reply: %+v", fb.emitted)
	}
}

func TestHandleGetWakeWordsListsSpecs(t *testing.T) {
	fb := newFakeBus()
	f := newTestFacade(t, fb, nil)
	f.hotwords.Add(hotword.Spec{Name: "hey assistant", Active: true, Listen: true}, hotword.NewRMSEnergyEngine(0.1, 1))

	fb.dispatch("neon.get_wake_words", bus.Message{})
	if len(fb.emitted) != 1 {
		t.Fatalf("expected one reply")
	}
	entry, ok := fb.emitted[0].Data["hey assistant"].(map[string]interface{})
	if !ok || entry["active"] != true {
		t.Fatalf("unexpected get_wake_words reply: %+v", fb.emitted[0].Data)
	}
}

func TestHandleDisableWakeWordRefusesLastListenWord(t *testing.T) {
	fb := newFakeBus()
	f := newTestFacade(t, fb, nil)
	f.hotwords.Add(hotword.Spec{Name: "hey assistant", Active: true, Listen: true}, hotword.NewRMSEnergyEngine(0.1, 1))

	fb.dispatch("neon.disable_wake_word", bus.Message{Data: map[string]interface{}{"wake_word": "hey assistant"}})
	if len(fb.emitted) != 1 {
		t.Fatalf("expected one reply")
	}
	if fb.emitted[0].Data["error"] == false {
		t.Fatalf("expected disabling the last listen hot word to be refused")
	}
	spec, _ := f.hotwords.Spec("hey assistant")
	if !spec.Active {
		t.Fatalf("expected the hot word to remain active after a refused disable")
	}
}

func TestHandleEnableWakeWordUnknownNameErrors(t *testing.T) {
	fb := newFakeBus()
	newTestFacade(t, fb, nil)

	fb.dispatch("neon.enable_wake_word", bus.Message{Data: map[string]interface{}{"wake_word": "nope"}})
	if fb.emitted[0].Data["error"] == false {
		t.Fatalf("expected an error for an unknown wake word")
	}
}

func TestHandleProfileUpdateTriggersReloadOnLanguageChange(t *testing.T) {
	fb := newFakeBus()
	reloaded := map[string]interface{}{}
	f := NewFacade(Config{
		Bus:         fb,
		Adapter:     newTestAdapter(t, nil),
		Chain:       transform.NewChain(nil),
		Hotwords:    hotword.NewSet(),
		State:       recognizer.NewListenerState(recognizer.ModeWakeword),
		SampleRate:  16000,
		SampleWidth: 2,
		Lang:        "en-US",
		Reloader:    reloaderFunc(func(ctx context.Context, patch map[string]interface{}) error { reloaded = patch; return nil }),
	})

	fb.dispatch("neon.profile_update", bus.Message{Data: map[string]interface{}{
		"profile": map[string]interface{}{
			"user":   map[string]interface{}{"username": "local"},
			"speech": map[string]interface{}{"stt_language": "fr-FR"},
		},
	}})

	if reloaded["lang"] != "fr-FR" {
		t.Fatalf("expected reload patch with new lang, got %+v", reloaded)
	}
	if f.lang != "fr-FR" {
		t.Fatalf("expected facade lang updated, got %q", f.lang)
	}
}

type reloaderFunc func(ctx context.Context, patch map[string]interface{}) error

func (r reloaderFunc) Reload(ctx context.Context, patch map[string]interface{}) error { return r(ctx, patch) }

type fakeMic struct {
	muted, unmuted, forceUnmuted, triggered int
}

func (m *fakeMic) Mute()          { m.muted++ }
func (m *fakeMic) Unmute()        { m.unmuted++ }
func (m *fakeMic) ForceUnmute()   { m.forceUnmuted++ }
func (m *fakeMic) TriggerListen() { m.triggered++ }

func newTestFacadeWithMic(t *testing.T, fb *fakeBus, mic *fakeMic) *Facade {
	t.Helper()
	return NewFacade(Config{
		Bus:         fb,
		Adapter:     newTestAdapter(t, nil),
		Chain:       transform.NewChain(nil),
		Hotwords:    hotword.NewSet(),
		State:       recognizer.NewListenerState(recognizer.ModeWakeword),
		SampleRate:  16000,
		SampleWidth: 2,
		Lang:        "en-US",
		Mic:         mic,
	})
}

func TestHandleMicMuteUnmuteListenForward(t *testing.T) {
	fb := newFakeBus()
	mic := &fakeMic{}
	newTestFacadeWithMic(t, fb, mic)

	fb.dispatch("mycroft.mic.mute", bus.Message{})
	fb.dispatch("mycroft.mic.unmute", bus.Message{})
	fb.dispatch("mycroft.mic.listen", bus.Message{})

	if mic.muted != 1 || mic.unmuted != 1 || mic.triggered != 1 {
		t.Fatalf("expected each mic call forwarded once, got %+v", mic)
	}
}

func TestHandleMicGetStatusReportsListenMode(t *testing.T) {
	fb := newFakeBus()
	f := newTestFacadeWithMic(t, fb, &fakeMic{})

	fb.dispatch("mycroft.mic.get_status", bus.Message{})
	if len(fb.emitted) != 1 || fb.emitted[0].Data["mic_state"] != f.state.ListenMode().String() {
		t.Fatalf("unexpected get_status reply: %+v", fb.emitted)
	}
}

func TestHandleStopForcesUnmuteRegardlessOfPriorCalls(t *testing.T) {
	fb := newFakeBus()
	mic := &fakeMic{}
	newTestFacadeWithMic(t, fb, mic)

	fb.dispatch("mycroft.stop", bus.Message{})
	if mic.forceUnmuted != 1 {
		t.Fatalf("expected mycroft.stop to force-unmute once, got %+v", mic)
	}
}

func TestHandleConfigurationPatchForwardsToReloader(t *testing.T) {
	fb := newFakeBus()
	var patched map[string]interface{}
	NewFacade(Config{
		Bus:         fb,
		Adapter:     newTestAdapter(t, nil),
		Chain:       transform.NewChain(nil),
		Hotwords:    hotword.NewSet(),
		State:       recognizer.NewListenerState(recognizer.ModeWakeword),
		SampleRate:  16000,
		SampleWidth: 2,
		Lang:        "en-US",
		Reloader:    reloaderFunc(func(ctx context.Context, patch map[string]interface{}) error { patched = patch; return nil }),
	})

	fb.dispatch("configuration.patch", bus.Message{Data: map[string]interface{}{"speech": map[string]interface{}{"stt_language": "de-DE"}}})
	if patched == nil || patched["speech"] == nil {
		t.Fatalf("expected configuration.patch forwarded to reloader, got %+v", patched)
	}
}
