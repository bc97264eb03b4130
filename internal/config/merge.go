package config

// Merge applies patch over base and returns a new Config. Fields left at
// their YAML zero value in patch are treated as "not set" and the base
// value is kept; this mirrors the deep-merge semantics the reload
// controller (C8) needs when applying a `configuration.patch` bus message
// without requiring the caller to resend the whole document. Hotwords
// entries are merged key-by-key so a patch can add or replace a single
// hot-word without clobbering the others.
func Merge(base, patch *Config) *Config {
	out := base.Clone()

	if patch.Listener.SampleRate != 0 {
		out.Listener.SampleRate = patch.Listener.SampleRate
	}
	if patch.Listener.SampleWidth != 0 {
		out.Listener.SampleWidth = patch.Listener.SampleWidth
	}
	if patch.Listener.RecordWakeWords {
		out.Listener.RecordWakeWords = patch.Listener.RecordWakeWords
	}
	if patch.Listener.SaveUtterances {
		out.Listener.SaveUtterances = patch.Listener.SaveUtterances
	}
	if patch.Listener.MuteDuringOutput {
		out.Listener.MuteDuringOutput = patch.Listener.MuteDuringOutput
	}
	if patch.Listener.PhonemeDuration != 0 {
		out.Listener.PhonemeDuration = patch.Listener.PhonemeDuration
	}
	if patch.Listener.Multiplier != 0 {
		out.Listener.Multiplier = patch.Listener.Multiplier
	}
	if patch.Listener.EnergyRatio != 0 {
		out.Listener.EnergyRatio = patch.Listener.EnergyRatio
	}
	if patch.Listener.StandUpWord != "" {
		out.Listener.StandUpWord = patch.Listener.StandUpWord
	}
	if patch.Listener.VAD.Module != "" {
		out.Listener.VAD.Module = patch.Listener.VAD.Module
	}
	if patch.Listener.EnableSTTAPI {
		out.Listener.EnableSTTAPI = patch.Listener.EnableSTTAPI
	}
	if patch.Listener.EnableVoiceLoop {
		out.Listener.EnableVoiceLoop = patch.Listener.EnableVoiceLoop
	}

	if patch.STT.Module != "" {
		out.STT.Module = patch.STT.Module
	}
	if patch.STT.FallbackModule != "" {
		out.STT.FallbackModule = patch.STT.FallbackModule
	}
	if patch.STT.OfflineModule != "" {
		out.STT.OfflineModule = patch.STT.OfflineModule
	}
	for mod, settings := range patch.STT.Modules {
		merged := make(map[string]interface{}, len(settings))
		for k, v := range out.STT.Modules[mod] {
			merged[k] = v
		}
		for k, v := range settings {
			merged[k] = v
		}
		out.STT.Modules[mod] = merged
	}

	for name, hw := range patch.Hotwords {
		out.Hotwords[name] = hw
	}

	if patch.Lang != "" {
		out.Lang = patch.Lang
	}

	return out
}
