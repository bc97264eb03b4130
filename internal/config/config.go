// Package config loads, validates, and hot-reloads the YAML configuration
// shared by every component. The loading/validation split and the polling
// file watcher are adapted from the reference corpus's own config package;
// the shape of the YAML itself (listener/stt/hotwords/lang) is this
// project's own.
package config

import (
	"fmt"
)

// ListenerConfig controls the audio source and basic recognizer tuning.
type ListenerConfig struct {
	SampleRate        int     `yaml:"sample_rate"`
	SampleWidth       int     `yaml:"sample_width"`
	RecordWakeWords   bool    `yaml:"record_wake_words"`
	SaveUtterances    bool    `yaml:"save_utterances"`
	MuteDuringOutput  bool    `yaml:"mute_during_output"`
	PhonemeDuration   int     `yaml:"phoneme_duration"`
	Multiplier        float64 `yaml:"multiplier"`
	EnergyRatio       float64 `yaml:"energy_ratio"`
	StandUpWord       string  `yaml:"stand_up_word"`
	VAD               VADConfig `yaml:"VAD"`
	EnableSTTAPI      bool    `yaml:"enable_stt_api"`
	EnableVoiceLoop   bool    `yaml:"enable_voice_loop"`
}

// VADConfig names the voice-activity-detection module to use.
type VADConfig struct {
	Module string `yaml:"module"`
}

// STTConfig selects the STT provider and its fallback/offline companions.
// Module-specific settings live under the module's own key, decoded lazily
// as a raw map so provider packages can unmarshal their own shape without
// this package needing to know it.
type STTConfig struct {
	Module        string                 `yaml:"module"`
	FallbackModule string                `yaml:"fallback_module,omitempty"`
	OfflineModule string                 `yaml:"offline_module,omitempty"`
	Modules       map[string]map[string]interface{} `yaml:",inline"`
}

// HotwordConfig describes one configured hot-word/wake-word entry.
type HotwordConfig struct {
	Module    string `yaml:"module"`
	Listen    bool   `yaml:"listen"`
	Active    bool   `yaml:"active"`
	Sound     string `yaml:"sound,omitempty"`
	Utterance string `yaml:"utterance,omitempty"`
	Rule      string `yaml:"rule,omitempty"`
	Model     string `yaml:"model,omitempty"`
}

// Config is the full configuration surface for the listener process.
type Config struct {
	Listener ListenerConfig           `yaml:"listener"`
	STT      STTConfig                `yaml:"stt"`
	Hotwords map[string]HotwordConfig `yaml:"hotwords"`
	Lang     string                   `yaml:"lang"`
}

// Default returns the built-in configuration, matching the defaults named
// in the external interface surface (16 kHz / 16-bit mono, "google" STT,
// a single "hey computer" listen hot-word).
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			SampleRate:       16000,
			SampleWidth:      2,
			RecordWakeWords:  false,
			SaveUtterances:   false,
			MuteDuringOutput: true,
			PhonemeDuration:  120,
			Multiplier:       1.0,
			EnergyRatio:      1.5,
			StandUpWord:      "wake up",
			VAD:              VADConfig{Module: "energy"},
			EnableSTTAPI:     true,
			EnableVoiceLoop:  true,
		},
		STT: STTConfig{
			Module: "google",
		},
		Hotwords: map[string]HotwordConfig{
			"hey computer": {
				Module: "energy",
				Listen: true,
				Active: true,
			},
		},
		Lang: "en-US",
	}
}

// Clone returns a deep-enough copy of cfg suitable for diffing against a
// later patched version; the Hotwords map is copied explicitly since Go
// does not deep-copy maps on assignment.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Hotwords = make(map[string]HotwordConfig, len(c.Hotwords))
	for k, v := range c.Hotwords {
		clone.Hotwords[k] = v
	}
	clone.STT.Modules = make(map[string]map[string]interface{}, len(c.STT.Modules))
	for k, v := range c.STT.Modules {
		inner := make(map[string]interface{}, len(v))
		for ik, iv := range v {
			inner[ik] = iv
		}
		clone.STT.Modules[k] = inner
	}
	return &clone
}

// errInvalid wraps a single validation failure with a field path prefix.
func errInvalid(path, msg string) error {
	return fmt.Errorf("config: %s: %s", path, msg)
}
