package hotword

import (
	"errors"
	"testing"
)

func TestRegistryLoadsDefaultEnergyEngine(t *testing.T) {
	r := NewRegistry(nil)
	e := r.Load(Spec{Name: "hey computer", EngineID: "energy"}, "en-US")
	if e == nil {
		t.Fatalf("expected a non-nil engine")
	}
}

func TestRegistryFallsBackOnUnknownEngine(t *testing.T) {
	r := NewRegistry(nil)
	e := r.Load(Spec{Name: "hey computer", EngineID: "precise"}, "en-US")
	if e == nil {
		t.Fatalf("expected fallback engine, got nil")
	}
}

func TestRegistryFallsBackOnFactoryError(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("broken", func(spec Spec, lang string) (Engine, error) {
		return nil, errBoom
	})

	e := r.Load(Spec{Name: "x", EngineID: "broken"}, "en-US")
	if e == nil {
		t.Fatalf("expected fallback engine after factory error, got nil")
	}
}

var errBoom = errors.New("boom")
