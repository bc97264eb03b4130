// Package recognizer implements C4, the responsive recognizer: the
// central state machine that decides when to open an utterance, feeds
// frames into the audio-transformer chain and hot-word engine set while
// listening, and hands finished phrases (or streaming markers) to the
// producer/consumer queue (C6).
//
// Grounded on neon_speech/mic.py's NeonResponsiveRecognizer (the
// listen() loop's wake-word/streaming-bypass branching and its
// check_for_hotwords/record_sound_chunk hooks into the transformer
// chain) and on pkg/orchestrator/managed_stream.go's Write (the
// single-threaded frame-driven transition style, event emission via a
// channel, and idempotent Close).
package recognizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxloop/listener/internal/logging"
	"github.com/voxloop/listener/pkg/audio"
	"github.com/voxloop/listener/pkg/hotword"
	"github.com/voxloop/listener/pkg/micsource"
	"github.com/voxloop/listener/pkg/stt"
	"github.com/voxloop/listener/pkg/transform"
)

// Defaults for the Recording -> Finalizing transition, per spec.md §4.4.
const (
	DefaultRecordingTimeout            = 10 * time.Second
	DefaultMinSilenceAtEnd             = 250 * time.Millisecond
	DefaultRecordingTimeoutWithSilence = 3 * time.Second

	// DefaultMinLoudSecPerPhrase is not given an explicit value in
	// spec.md beyond the formula it plugs into; 100ms is the smallest
	// amount of confirmed speech that counts as "a real phrase" rather
	// than a brief noise spike, recorded as an open-question resolution
	// in DESIGN.md.
	DefaultMinLoudSecPerPhrase = 100 * time.Millisecond
)

// IsSpeakingFunc reports whether the assistant's own TTS is currently
// speaking, so the continuous-mode bypass can filter out its own output.
type IsSpeakingFunc func() bool

// Config holds the recognizer's tunable parameters, built from
// internal/config.ListenerConfig.
type Config struct {
	SampleRate  int
	SampleWidth int
	Chunk       int

	RecordingTimeout            time.Duration
	MinSilenceAtEnd             time.Duration
	MinLoudSecPerPhrase         time.Duration
	RecordingTimeoutWithSilence time.Duration

	PhonemeDurationMS int
	Multiplier        float64
	EnergyRatio       float64
	Damping           float64
	StandUpWord       string

	MuteDuringOutput bool
	RecordWakeWords  bool

	Lang string
}

// DefaultConfig returns the spec.md §6 listener defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:                  16000,
		SampleWidth:                 2,
		Chunk:                       micsource.Chunk,
		RecordingTimeout:            DefaultRecordingTimeout,
		MinSilenceAtEnd:             DefaultMinSilenceAtEnd,
		MinLoudSecPerPhrase:         DefaultMinLoudSecPerPhrase,
		RecordingTimeoutWithSilence: DefaultRecordingTimeoutWithSilence,
		PhonemeDurationMS:           120,
		Multiplier:                  DefaultMultiplier,
		EnergyRatio:                 DefaultEnergyRatio,
		Damping:                     DefaultDamping,
		StandUpWord:                 "wake up",
		Lang:                        "en-US",
	}
}

func (c Config) chunkSec() float64 {
	return float64(c.Chunk) / float64(c.SampleRate)
}

// Recognizer is C4. It is driven by repeated calls to Step (or the
// blocking Run loop) from a single producer goroutine; State/ListenMode
// observation is safe from other goroutines via ListenerState.
type Recognizer struct {
	cfg Config

	source     micsource.Source
	hotwords   *hotword.Set
	chain      *transform.Chain
	stt        *stt.Holder
	sink       Sink
	emitter    Emitter
	isSpeaking IsSpeakingFunc
	log        logging.Logger

	state  *ListenerState
	energy *EnergyTracker
	phrase *PhraseBuffer

	current State

	// recording-phase accumulators, reset on each Recording entry.
	recordingBuf  []byte
	numChunks     int
	loudChunks    int
	silentStreak  int
	lastWWCheck   time.Time
	pendingListen bool

	continuousActive bool
}

// Option configures optional Recognizer collaborators.
type Option func(*Recognizer)

func WithEmitter(e Emitter) Option { return func(r *Recognizer) { r.emitter = e } }
func WithLogger(l logging.Logger) Option { return func(r *Recognizer) { r.log = l } }
func WithIsSpeaking(f IsSpeakingFunc) Option { return func(r *Recognizer) { r.isSpeaking = f } }

// NewRecognizer wires together C1 (source), C3 (hotwords), C2 (chain),
// and C5 (sttAdapter, used here only to query CanStream/ResultsReady —
// Execute/StreamStart/StreamData/StreamStop are invoked by the consumer,
// C6, against the items this recognizer hands to sink).
func NewRecognizer(cfg Config, source micsource.Source, hotwords *hotword.Set, chain *transform.Chain, sttAdapter *stt.Holder, sink Sink, opts ...Option) *Recognizer {
	r := &Recognizer{
		cfg:      cfg,
		source:   source,
		hotwords: hotwords,
		chain:    chain,
		stt:      sttAdapter,
		sink:     sink,
		emitter:  noopEmitter{},
		log:      logging.NoOpLogger{},
		state:    NewListenerState(ModeWakeword),
		energy:   NewEnergyTracker(cfg.Damping, cfg.Multiplier, cfg.EnergyRatio),
		phrase:   NewPhraseBuffer(cfg.SampleRate, cfg.SampleWidth),
		current:  StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) State() *ListenerState { return r.state }

// Start marks the recognizer running; Step becomes active.
func (r *Recognizer) Start() { r.state.Start() }

// Stop marks the recognizer not-running; Run exits at the next Step.
func (r *Recognizer) Stop() { r.state.Stop() }

// TriggerListen opens an utterance on the next Step regardless of
// wake-word detection — used by the trigger_listen bus message and
// button-press signal (spec.md §4.4 transition (b)/(c)).
func (r *Recognizer) TriggerListen() { r.pendingListen = true }

// Mute forwards to both the listener-level counter and the underlying
// source, per spec.md §3/§4.1.
func (r *Recognizer) Mute() {
	r.state.Mute()
	r.source.Mute()
}

func (r *Recognizer) Unmute() {
	r.state.Unmute()
	r.source.Unmute()
}

// ForceUnmute implements handle_stop's unconditional reset (spec.md §5).
func (r *Recognizer) ForceUnmute() {
	r.state.ForceUnmute()
	for r.source.IsMuted() {
		r.source.Unmute()
	}
}

// Run drives Step in a loop until ctx is cancelled or Stop is called.
func (r *Recognizer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		default:
		}
		if !r.state.Running() {
			return nil
		}
		if err := r.Step(ctx); err != nil {
			r.log.Error("recognizer: step failed", "err", err)
			return err
		}
	}
}

// Step processes exactly one frame's worth of work through the state
// machine. It is the unit tested by recognizer_test.go.
func (r *Recognizer) Step(ctx context.Context) error {
	if r.state.Sleeping() {
		return r.stepSleeping(ctx)
	}

	mode := r.state.ListenMode()
	if mode == ModeContinuous && r.stt.Get().CanStream() {
		return r.stepContinuous(ctx)
	}

	switch r.current {
	case StateIdle:
		r.current = StateListeningForWakeword
		return nil
	case StateRecording:
		return r.stepRecording(ctx)
	default:
		return r.stepListening(ctx)
	}
}

func (r *Recognizer) readFrame(ctx context.Context) (audio.Frame, error) {
	frame, err := r.source.ReadFrame(ctx)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("recognizer: read frame: %w", err)
	}
	return frame, nil
}

// longestPhonemeCount scans the active hot-word specs for the longest
// phoneme sequence, feeding hotword.TestWWSec's longest_phoneme_count
// parameter.
func (r *Recognizer) longestPhonemeCount() int {
	longest := 0
	for _, spec := range r.hotwords.Specs() {
		if !spec.Active || spec.Phonemes == "" {
			continue
		}
		if n := len(strings.Fields(spec.Phonemes)); n > longest {
			longest = n
		}
	}
	return longest
}

func (r *Recognizer) stepListening(ctx context.Context) error {
	frame, err := r.readFrame(ctx)
	if err != nil {
		return err
	}

	r.chain.FeedAudio(frame)
	r.hotwords.Update(frame.Data)
	r.phrase.Observe(frame.Data)
	r.energy.Observe(frame.Data, r.cfg.chunkSec())

	triggered := r.pendingListen
	r.pendingListen = false

	if time.Since(r.lastWWCheck) >= hotword.SecBetweenChecks {
		r.lastWWCheck = time.Now()
		testSec := hotword.TestWWSec(r.longestPhonemeCount(), r.cfg.PhonemeDurationMS)
		window := r.phrase.Window(testSec, r.cfg.SampleRate, r.cfg.SampleWidth)
		matches := r.hotwords.Check(window)
		for _, m := range matches {
			r.emitter.Emit(TopicHotword, map[string]interface{}{"hotword": m.Name})
			if m.Listen {
				r.emitter.Emit(TopicWakeword, map[string]interface{}{"hotword": m.Name})
				triggered = true
			}
		}
	}

	if triggered {
		r.startRecording(frame)
	}
	return nil
}

func (r *Recognizer) startRecording(triggerFrame audio.Frame) {
	r.chain.FeedHotword(triggerFrame)

	lead := r.phrase.FlushWWFrames()
	r.recordingBuf = append([]byte(nil), lead...)
	r.numChunks = 0
	r.loudChunks = 0
	r.silentStreak = 0
	r.current = StateRecording

	r.emitter.Emit(TopicRecordBegin, nil)

	if r.stt.Get().CanStream() {
		r.sink.StreamStart()
	}
}

func (r *Recognizer) stepRecording(ctx context.Context) error {
	frame, err := r.readFrame(ctx)
	if err != nil {
		return err
	}

	r.chain.FeedSpeech(frame)
	r.recordingBuf = append(r.recordingBuf, frame.Data...)
	r.numChunks++

	_, loud := r.energy.Observe(frame.Data, r.cfg.chunkSec())
	if loud {
		r.loudChunks++
		r.silentStreak = 0
	} else {
		r.silentStreak++
	}

	streaming := r.stt.Get().CanStream()
	if streaming {
		r.sink.StreamData(frame.Data)
	}

	if r.shouldFinalize(streaming) {
		r.finalize(streaming)
	}
	return nil
}

func (r *Recognizer) shouldFinalize(streaming bool) bool {
	chunkSec := r.cfg.chunkSec()
	elapsed := time.Duration(float64(r.numChunks) * chunkSec * float64(time.Second))
	if elapsed >= r.cfg.RecordingTimeout {
		return true
	}

	silentSuffix := time.Duration(float64(r.silentStreak) * chunkSec * float64(time.Second))
	if silentSuffix >= r.cfg.MinSilenceAtEnd {
		minLoudChunks := int(r.cfg.MinLoudSecPerPhrase.Seconds()/chunkSec) + 1
		minSilentChunksGrace := int(r.cfg.RecordingTimeoutWithSilence.Seconds() / chunkSec)
		if r.loudChunks >= minLoudChunks || r.silentStreak >= minSilentChunksGrace {
			return true
		}
	}

	if streaming {
		select {
		case <-r.stt.Get().Streaming().ResultsReady():
			return true
		default:
		}
	}
	return false
}

func (r *Recognizer) finalize(streaming bool) {
	r.current = StateFinalizing

	if streaming {
		r.sink.StreamStop()
	} else {
		clip := audio.Clip{Data: r.recordingBuf, SampleRate: r.cfg.SampleRate, SampleWidth: r.cfg.SampleWidth}
		finalClip, delta := r.chain.Finalize(clip)
		r.sink.Audio(finalClip, delta)
	}

	r.emitter.Emit(TopicRecordEnd, nil)

	r.recordingBuf = nil
	r.numChunks = 0
	r.loudChunks = 0
	r.silentStreak = 0
	r.current = StateIdle
}

// stepContinuous implements the listen_mode=Continuous bypass: no
// wake-word search, a persistent stream segment per utterance, frames
// filtered out while the assistant's own TTS is speaking.
func (r *Recognizer) stepContinuous(ctx context.Context) error {
	frame, err := r.readFrame(ctx)
	if err != nil {
		return err
	}

	if !r.continuousActive {
		r.continuousActive = true
		r.numChunks = 0
		r.sink.StreamStart()
		r.emitter.Emit(TopicRecordBegin, nil)
	}

	r.chain.FeedAudio(frame)
	speaking := r.isSpeaking != nil && r.isSpeaking()
	if !speaking {
		r.sink.StreamData(frame.Data)
		r.numChunks++
	}

	elapsed := time.Duration(float64(r.numChunks) * r.cfg.chunkSec() * float64(time.Second))
	resultReady := false
	select {
	case <-r.stt.Get().Streaming().ResultsReady():
		resultReady = true
	default:
	}

	if resultReady || elapsed >= r.cfg.RecordingTimeout {
		r.sink.StreamStop()
		r.emitter.Emit(TopicRecordEnd, nil)
		r.continuousActive = false
	}
	return nil
}

// stepSleeping diverts frames to a wake-up check instead of the normal
// wake-word/recording cycle; any match wakes the recognizer and emits
// recognizer_loop:awoken (spec.md §4.4).
func (r *Recognizer) stepSleeping(ctx context.Context) error {
	frame, err := r.readFrame(ctx)
	if err != nil {
		return err
	}

	r.phrase.Observe(frame.Data)
	r.hotwords.Update(frame.Data)

	if time.Since(r.lastWWCheck) >= hotword.SecBetweenChecks {
		r.lastWWCheck = time.Now()
		testSec := hotword.TestWWSec(r.longestPhonemeCount(), r.cfg.PhonemeDurationMS)
		window := r.phrase.Window(testSec, r.cfg.SampleRate, r.cfg.SampleWidth)
		if matches := r.hotwords.Check(window); len(matches) > 0 {
			r.state.WakeUp()
			r.current = StateIdle
			r.phrase.FlushWWFrames()
			r.emitter.Emit(TopicAwoken, nil)
		}
	}
	return nil
}
