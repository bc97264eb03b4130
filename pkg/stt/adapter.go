package stt

import (
	"context"
	"fmt"

	"github.com/voxloop/listener/internal/logging"
)

// DefaultModule is the STT module used as the fallback when no
// fallback_module is configured, per spec.md §4.5.
const DefaultModule = "google"

// Adapter is the single STT entry point C4/C6/C7 use: it hides the
// configured module/fallback_module/offline_module selection and
// language normalization behind one Execute/stream surface, and
// transparently retries on the fallback when the primary provider fails
// at runtime.
type Adapter struct {
	registry *Registry
	log      logging.Logger

	primary  Provider
	fallback Provider
	lang     string
}

// NewAdapter builds an Adapter. module is the configured primary;
// fallbackModule may be empty, in which case DefaultModule is the
// fallback. The fallback is built alongside the primary (unless it names
// the same, already loaded module) so it can take over at runtime. A set
// fallbackModule that fails to build is not followed by a DefaultModule
// attempt; primary and fallback both failing is a configuration error
// the caller must surface.
func NewAdapter(registry *Registry, module, fallbackModule, defaultLang string, settings map[string]map[string]interface{}, log logging.Logger) (*Adapter, error) {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	a := &Adapter{registry: registry, log: log, lang: NormalizeLang(defaultLang)}

	primary, err := registry.Build(module, settings[module])
	if err != nil {
		log.Warn("stt: primary module failed to load", "module", module, "err", err)
		primary = nil
	}
	a.primary = primary

	fallbackName := fallbackModule
	if fallbackName == "" {
		fallbackName = DefaultModule
	}
	if fallbackName != module || primary == nil {
		fallback, err := registry.Build(fallbackName, settings[fallbackName])
		if err != nil {
			log.Warn("stt: fallback module failed to load", "module", fallbackName, "err", err)
		} else {
			a.fallback = fallback
		}
	}

	if a.primary == nil && a.fallback == nil {
		return nil, fmt.Errorf("%w: neither %q nor fallback %q could be loaded", ErrPluginLoad, module, fallbackName)
	}
	return a, nil
}

// active returns whichever provider should serve the next request:
// primary if loaded, else fallback.
func (a *Adapter) active() Provider {
	if a.primary != nil {
		return a.primary
	}
	return a.fallback
}

// Execute transcribes a batch clip, normalizing lang (falling back to
// the adapter's configured default language if lang is empty) and
// transparently retrying on the fallback provider if the primary fails
// at runtime.
func (a *Adapter) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	normalized := NormalizeLang(lang)
	if normalized == "" {
		normalized = a.lang
	}

	if a.primary != nil {
		results, err := a.primary.Execute(ctx, pcm, sampleRate, normalized)
		if err == nil {
			return results, nil
		}
		a.log.Warn("stt: primary provider failed at runtime, falling back", "provider", a.primary.Name(), "err", err)
		if a.fallback == nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPluginRuntime, a.primary.Name(), err)
		}
		results, err = a.fallback.Execute(ctx, pcm, sampleRate, normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPluginRuntime, a.fallback.Name(), err)
		}
		return results, nil
	}

	if a.fallback == nil {
		return nil, fmt.Errorf("%w: no provider available", ErrPluginRuntime)
	}
	return a.fallback.Execute(ctx, pcm, sampleRate, normalized)
}

// CanStream reports whether the active provider supports streaming.
func (a *Adapter) CanStream() bool {
	sp, ok := a.active().(StreamingProvider)
	return ok && sp.CanStream()
}

// Streaming returns the active provider as a StreamingProvider, or nil
// if it doesn't support streaming.
func (a *Adapter) Streaming() StreamingProvider {
	sp, _ := a.active().(StreamingProvider)
	return sp
}

// ActiveName reports which provider is currently serving requests.
func (a *Adapter) ActiveName() string {
	return a.active().Name()
}
