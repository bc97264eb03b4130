package service

import (
	"context"
	"fmt"
	"time"

	"github.com/voxloop/listener/internal/timing"
	"github.com/voxloop/listener/pkg/bus"
	"github.com/voxloop/listener/pkg/pipeline"
	"github.com/voxloop/listener/pkg/recognizer"
	"github.com/voxloop/listener/pkg/stt"
)

// sttResponseData builds the {parser_data, transcripts,
// transcripts_with_conf} shape shared by get_stt and audio_input.
func sttResponseData(parserData map[string]interface{}, results []stt.Result) map[string]interface{} {
	texts := make([]string, len(results))
	withConf := make([][2]interface{}, len(results))
	for i, r := range results {
		texts[i] = r.Text
		withConf[i] = [2]interface{}{r.Text, r.Confidence}
	}
	return map[string]interface{}{
		"parser_data":           parserData,
		"transcripts":           texts,
		"transcripts_with_conf": withConf,
	}
}

func (f *Facade) handleGetSTT(msg bus.Message) {
	_, parserData, results, err := f.transcribe(context.Background(), msg.Data)
	if err != nil {
		f.reply(msg, map[string]interface{}{"error": err.Error()})
		return
	}
	f.reply(msg, sttResponseData(parserData, results))
}

// handleAudioInput mirrors the original's handle_audio_input/build_context:
// the forwarded recognizer_loop:utterance carries only {utterances, lang}
// as its data, with the request's context carried forward on the message
// itself (not folded into data) and stamped with destination=["skills"],
// audio_parser_data, and timing.transcribed — spec.md §8 scenario 4.
func (f *Facade) handleAudioInput(msg bus.Message) {
	var sw timing.Stopwatch
	sw.Start()
	_, parserData, results, err := f.transcribe(context.Background(), msg.Data)
	transcribed := sw.Stop().Seconds()
	if err != nil {
		f.reply(msg, map[string]interface{}{"error": err.Error()})
		return
	}

	lang, _ := msg.Data["lang"].(string)
	if lang == "" {
		lang = f.lang
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}

	utteranceCtx := make(map[string]interface{}, len(msg.Context)+3)
	for k, v := range msg.Context {
		utteranceCtx[k] = v
	}
	utteranceCtx["destination"] = []string{"skills"}
	utteranceCtx["audio_parser_data"] = parserData

	existingTiming, _ := utteranceCtx["timing"].(map[string]interface{})
	timingData := make(map[string]interface{}, len(existingTiming)+1)
	for k, v := range existingTiming {
		timingData[k] = v
	}
	timingData["transcribed"] = transcribed
	utteranceCtx["timing"] = timingData

	skillsRecv := f.bus.EmitMessage(bus.Message{
		Type:    pipeline.TopicUtterance,
		Data:    map[string]interface{}{"utterances": texts, "lang": lang},
		Context: utteranceCtx,
	}) == nil

	resp := sttResponseData(parserData, results)
	resp["skills_recv"] = skillsRecv
	f.reply(msg, resp)
}

func (f *Facade) handleWakeWordsState(msg bus.Message) {
	enabled, _ := msg.Data["enabled"].(bool)
	if enabled {
		f.state.SetListenMode(recognizer.ModeWakeword)
	} else {
		f.state.SetListenMode(recognizer.ModeContinuous)
	}
}

func (f *Facade) handleQueryWakeWordsState(msg bus.Message) {
	enabled := f.state.ListenMode() == recognizer.ModeWakeword
	f.reply(msg, map[string]interface{}{"enabled": enabled})
}

func (f *Facade) handleGetWakeWords(msg bus.Message) {
	specs := f.hotwords.Specs()
	out := make(map[string]interface{}, len(specs))
	for name, spec := range specs {
		out[name] = map[string]interface{}{
			"active":    spec.Active,
			"listen":    spec.Listen,
			"utterance": spec.Utterance,
		}
	}
	f.reply(msg, out)
}

func (f *Facade) handleEnableWakeWord(msg bus.Message) {
	f.setWakeWordActive(msg, true)
}

func (f *Facade) handleDisableWakeWord(msg bus.Message) {
	f.setWakeWordActive(msg, false)
}

func (f *Facade) setWakeWordActive(msg bus.Message, active bool) {
	name, _ := msg.Data["wake_word"].(string)
	spec, ok := f.hotwords.Spec(name)
	if !ok {
		f.reply(msg, map[string]interface{}{
			"error": fmt.Sprintf("unknown hot word %q", name), "active": false, "wake_word": name,
		})
		return
	}
	if !active && spec.Listen && spec.Active && f.hotwords.ActiveListenCount() <= 1 {
		// Literal string required by spec.md §8 scenario 6 and the
		// original's neon_speech/service.py:262.
		f.reply(msg, map[string]interface{}{
			"error": "only one active ww", "active": true, "wake_word": name,
		})
		return
	}
	f.hotwords.SetActive(name, active)
	updated, _ := f.hotwords.Spec(name)
	f.reply(msg, map[string]interface{}{"error": false, "active": updated.Active, "wake_word": name})
}

func (f *Facade) handleProfileUpdate(msg bus.Message) {
	profile, ok := msg.Data["profile"].(map[string]interface{})
	if !ok {
		return
	}
	if user, ok := profile["user"].(map[string]interface{}); ok {
		if username, _ := user["username"].(string); username == "local" {
			f.defaultProfile = profile
		}
	}
	speech, ok := profile["speech"].(map[string]interface{})
	if !ok {
		return
	}
	newLang, _ := speech["stt_language"].(string)
	if newLang == "" || newLang == f.lang || f.reloader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.reloader.Reload(ctx, map[string]interface{}{"lang": newLang}); err != nil {
		f.log.Error("service: profile_update reload failed", "err", err)
		return
	}
	f.lang = newLang
}

func (f *Facade) handleInternetConnected(bus.Message) {
	if f.reloader == nil || f.onlineModule == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.reloader.Reload(ctx, map[string]interface{}{"stt": map[string]interface{}{"module": f.onlineModule}}); err != nil {
		f.log.Error("service: reload to online stt module failed", "err", err)
	}
}

func (f *Facade) handleOffline(bus.Message) {
	if f.reloader == nil || f.offlineModule == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.reloader.Reload(ctx, map[string]interface{}{"stt": map[string]interface{}{"module": f.offlineModule}}); err != nil {
		f.log.Error("service: reload to offline stt module failed", "err", err)
	}
}

func (f *Facade) handleMicMute(bus.Message) {
	if f.mic != nil {
		f.mic.Mute()
	}
}

func (f *Facade) handleMicUnmute(bus.Message) {
	if f.mic != nil {
		f.mic.Unmute()
	}
}

func (f *Facade) handleMicListen(bus.Message) {
	if f.mic != nil {
		f.mic.TriggerListen()
	}
}

func (f *Facade) handleMicGetStatus(msg bus.Message) {
	f.reply(msg, map[string]interface{}{"mic_state": f.state.ListenMode().String()})
}

// handleStop implements spec.md §9's "mycroft.stop forces the mute
// counter to 0 regardless of prior calls".
func (f *Facade) handleStop(bus.Message) {
	if f.mic != nil {
		f.mic.ForceUnmute()
	}
}

func (f *Facade) handleConfigurationPatch(msg bus.Message) {
	if f.reloader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.reloader.Reload(ctx, msg.Data); err != nil {
		f.log.Error("service: configuration.patch reload failed", "err", err)
	}
}
