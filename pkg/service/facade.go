// Package service implements C7, the messagebus-facing facade: the bus
// endpoint handlers of spec.md §4.7, bound over pkg/bus and backed by
// the already-built C2 (transform), C3 (hotword), and C5 (stt) layers.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/audio"
	"github.com/voxloop/listener/pkg/bus"
	"github.com/voxloop/listener/pkg/hotword"
	"github.com/voxloop/listener/pkg/recognizer"
	"github.com/voxloop/listener/pkg/stt"
	"github.com/voxloop/listener/pkg/transform"
)

// sttMutexTimeout is the §4.7 "process-wide mutex guards the
// messagebus-triggered STT path... 30s acquisition timeout".
const sttMutexTimeout = 30 * time.Second

// Reloader applies a config patch and waits for the reload to settle,
// implemented by pkg/reload.Controller. Declared here rather than
// imported so C7 does not need to depend on C8's concrete type.
type Reloader interface {
	Reload(ctx context.Context, patch map[string]interface{}) error
}

// MicControl forwards the mycroft.mic.* / mycroft.stop bus topics onto
// the live recognizer, satisfied by *recognizer.Recognizer.
type MicControl interface {
	Mute()
	Unmute()
	ForceUnmute()
	TriggerListen()
}

// Facade binds every bus endpoint in spec.md §4.7 onto the listener's
// internal components.
type Facade struct {
	bus      bus.Client
	sttMu    *semaphore.Weighted
	adapter  *stt.Holder
	chain    *transform.Chain
	hotwords *hotword.Set
	state    *recognizer.ListenerState
	mic      MicControl
	reloader Reloader
	log      logging.Logger

	sampleRate    int
	sampleWidth   int
	lang          string
	onlineModule  string
	offlineModule string

	defaultProfile map[string]interface{}
}

// Config carries the wiring Facade needs at construction.
type Config struct {
	Bus         bus.Client
	Adapter     *stt.Holder
	Chain       *transform.Chain
	Hotwords    *hotword.Set
	State       *recognizer.ListenerState
	Mic         MicControl
	Reloader    Reloader
	Log         logging.Logger
	SampleRate  int
	SampleWidth int
	Lang        string
	// OnlineModule/OfflineModule are the configured stt.module and
	// stt.offline_module names; handleInternetConnected/handleOffline
	// swap between them via Reloader when connectivity changes.
	OnlineModule  string
	OfflineModule string
}

// NewFacade builds a Facade and registers every endpoint handler on the
// bus client. Call Connect on the bus separately.
func NewFacade(cfg Config) *Facade {
	log := cfg.Log
	if log == nil {
		log = logging.NoOpLogger{}
	}
	f := &Facade{
		bus:            cfg.Bus,
		sttMu:          semaphore.NewWeighted(1),
		adapter:        cfg.Adapter,
		chain:          cfg.Chain,
		hotwords:       cfg.Hotwords,
		state:          cfg.State,
		mic:            cfg.Mic,
		reloader:       cfg.Reloader,
		log:            log,
		sampleRate:     cfg.SampleRate,
		sampleWidth:    cfg.SampleWidth,
		lang:           cfg.Lang,
		onlineModule:   cfg.OnlineModule,
		offlineModule:  cfg.OfflineModule,
		defaultProfile: map[string]interface{}{"user": map[string]interface{}{"username": "local"}},
	}
	f.registerHandlers()
	return f
}

func (f *Facade) registerHandlers() {
	f.bus.On("neon.get_stt", f.handleGetSTT)
	f.bus.On("neon.audio_input", f.handleAudioInput)
	f.bus.On("neon.wake_words_state", f.handleWakeWordsState)
	f.bus.On("neon.query_wake_words_state", f.handleQueryWakeWordsState)
	f.bus.On("neon.get_wake_words", f.handleGetWakeWords)
	f.bus.On("neon.enable_wake_word", f.handleEnableWakeWord)
	f.bus.On("neon.disable_wake_word", f.handleDisableWakeWord)
	f.bus.On("neon.profile_update", f.handleProfileUpdate)
	f.bus.On("mycroft.internet.connected", f.handleInternetConnected)
	f.bus.On("ovos.phal.wifi.plugin.fully_offline", f.handleOffline)
	f.bus.On("mycroft.mic.mute", f.handleMicMute)
	f.bus.On("mycroft.mic.unmute", f.handleMicUnmute)
	f.bus.On("mycroft.mic.listen", f.handleMicListen)
	f.bus.On("mycroft.mic.get_status", f.handleMicGetStatus)
	f.bus.On("mycroft.stop", f.handleStop)
	f.bus.On("configuration.patch", f.handleConfigurationPatch)
}

// replyTopic mirrors the teacher's ident-or-default reply convention:
// an explicit context["ident"] wins, otherwise "<type>.response".
func replyTopic(msg bus.Message) string {
	if ident, ok := msg.Context["ident"].(string); ok && ident != "" {
		return ident
	}
	return msg.Type + ".response"
}

// reply echoes msg.Context onto the response, matching the teacher's
// message.reply(...) (OVOS bus Message.reply preserves the original
// context unless overridden) — spec.md §8 scenarios 1 and 2 both require
// the original request's context, ident included, to come back on the
// reply.
func (f *Facade) reply(msg bus.Message, data map[string]interface{}) {
	if err := f.bus.EmitMessage(bus.Message{Type: replyTopic(msg), Data: data, Context: msg.Context}); err != nil {
		f.log.Warn("service: reply failed", "type", replyTopic(msg), "err", err)
	}
}

// decodeAudio resolves audio_file/audio_data from a request's data map
// into a decoded, mono, configured-sample-rate Clip.
func (f *Facade) decodeAudio(data map[string]interface{}) (audio.Clip, error) {
	var raw []byte
	if b64, ok := data["audio_data"].(string); ok && b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return audio.Clip{}, fmt.Errorf("service: decoding audio_data: %w", err)
		}
		path, err := f.writeTempWAV(decoded)
		if err != nil {
			return audio.Clip{}, err
		}
		defer os.Remove(path)
		raw = decoded
	} else if path, ok := data["audio_file"].(string); ok && path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return audio.Clip{}, fmt.Errorf("service: reading audio_file: %w", err)
		}
		raw = fileData
	} else {
		// Literal string required by spec.md §8 scenario 2 and the
		// original's neon_speech/service.py:404.
		return audio.Clip{}, errors.New("audio_file not specified!")
	}

	clip, err := audio.DecodeWAV(raw)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("service: decoding wav: %w", err)
	}
	if clip.SampleRate != f.sampleRate {
		clip.Data = audio.Resample(clip.Data, clip.SampleRate, f.sampleRate)
		clip.SampleRate = f.sampleRate
	}
	return *clip, nil
}

// writeTempWAV persists base64-decoded audio_data to a temporary file
// before decoding, matching spec.md §4.7's documented path for that
// input shape. decodeAudio removes the file when it returns; the path is
// not passed on to the chain or to the STT provider.
func (f *Facade) writeTempWAV(raw []byte) (string, error) {
	tmp, err := os.CreateTemp("", "listener-audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("service: creating temp wav: %w", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(raw); err != nil {
		return "", fmt.Errorf("service: writing temp wav: %w", err)
	}
	return tmp.Name(), nil
}

// transcribe decodes, passes the clip through C2, and invokes STT under
// the process-wide mutex, returning the C2 context dict (minus "timing",
// matching the teacher's parser_data shape) alongside the results.
func (f *Facade) transcribe(ctx context.Context, data map[string]interface{}) (audio.Clip, map[string]interface{}, []stt.Result, error) {
	clip, err := f.decodeAudio(data)
	if err != nil {
		return audio.Clip{}, nil, nil, err
	}
	finalClip, parserData := f.chain.Finalize(clip)
	delete(parserData, "timing")

	lang, _ := data["lang"].(string)
	if lang == "" {
		lang = f.lang
	}

	acqCtx, cancel := context.WithTimeout(ctx, sttMutexTimeout)
	defer cancel()
	if err := f.sttMu.Acquire(acqCtx, 1); err != nil {
		return audio.Clip{}, nil, nil, fmt.Errorf("service: stt mutex acquire: %w", err)
	}
	defer f.sttMu.Release(1)

	results, err := f.adapter.Get().Execute(ctx, finalClip.Data, finalClip.SampleRate, lang)
	if err != nil {
		return audio.Clip{}, nil, nil, err
	}
	return finalClip, parserData, results, nil
}
