package hotword

import (
	"fmt"

	"github.com/voxloop/listener/internal/logging"
)

// Factory builds an Engine for a given spec and language.
type Factory func(spec Spec, lang string) (Engine, error)

// Registry is the named-engine dispatch table, generalized from
// HotWordFactory.CLASSES/load_wake_word_plugin into an explicit
// register/build pair. Load falls back to the "energy" default on a
// failed build, mirroring load_module's "falling back to default" path
// rather than propagating the error and losing the hot-word entirely.
type Registry struct {
	factories map[string]Factory
	log       logging.Logger
}

// NewRegistry builds a Registry with the "energy" default pre-registered.
func NewRegistry(log logging.Logger) *Registry {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	r := &Registry{factories: make(map[string]Factory), log: log}
	r.factories["energy"] = func(spec Spec, lang string) (Engine, error) {
		threshold := 0.02
		if t, ok := spec.Config["threshold"].(float64); ok {
			threshold = t
		}
		return NewRMSEnergyEngine(threshold, 0), nil
	}
	return r
}

// Register adds a named factory. Registering "energy" again replaces
// the built-in default; any other duplicate name is an error.
func (r *Registry) Register(name string, f Factory) error {
	if _, exists := r.factories[name]; exists && name != "energy" {
		return fmt.Errorf("hotword: %q is already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Load builds the engine named by spec.EngineID. If that module is not
// registered or fails to build, it logs a warning and falls back to the
// "energy" default rather than leaving the hot-word unusable.
func (r *Registry) Load(spec Spec, lang string) Engine {
	if spec.EngineID != "" {
		if f, ok := r.factories[spec.EngineID]; ok {
			engine, err := f(spec, lang)
			if err == nil {
				return engine
			}
			r.log.Warn("hotword: failed to build engine, falling back to energy default",
				"name", spec.Name, "engine_id", spec.EngineID, "err", err)
		} else {
			r.log.Warn("hotword: no engine registered, falling back to energy default",
				"name", spec.Name, "engine_id", spec.EngineID)
		}
	}

	engine, _ := r.factories["energy"](spec, lang)
	return engine
}
