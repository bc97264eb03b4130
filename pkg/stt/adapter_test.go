package stt

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name    string
	fail    bool
	results []Result
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	if f.fail {
		return nil, errors.New("provider failure")
	}
	return f.results, nil
}

func registryWith(name string, p Provider) *Registry {
	r := NewRegistry()
	r.Register(name, func(settings map[string]interface{}) (Provider, error) {
		return p, nil
	})
	return r
}

func TestAdapterUsesPrimaryWhenHealthy(t *testing.T) {
	r := registryWith("groq", &fakeProvider{name: "groq", results: []Result{{Text: "hi"}}})
	a, err := NewAdapter(r, "groq", "", "en-US", nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if a.ActiveName() != "groq" {
		t.Errorf("ActiveName() = %q, want groq", a.ActiveName())
	}

	results, err := a.Execute(context.Background(), nil, 16000, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].Text != "hi" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestAdapterFallsBackOnPrimaryRuntimeFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("groq", func(settings map[string]interface{}) (Provider, error) {
		return &fakeProvider{name: "groq", fail: true}, nil
	})
	r.Register("google", func(settings map[string]interface{}) (Provider, error) {
		return &fakeProvider{name: "google", results: []Result{{Text: "fallback"}}}, nil
	})

	a, err := NewAdapter(r, "groq", "", "en-US", nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	results, err := a.Execute(context.Background(), nil, 16000, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].Text != "fallback" {
		t.Errorf("expected fallback result, got %v", results)
	}
}

func TestAdapterFallsBackWhenPrimaryModuleFailsToLoad(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", func(settings map[string]interface{}) (Provider, error) {
		return nil, errors.New("no model available")
	})
	r.Register("google", func(settings map[string]interface{}) (Provider, error) {
		return &fakeProvider{name: "google"}, nil
	})

	a, err := NewAdapter(r, "broken", "", "en-US", nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if a.ActiveName() != "google" {
		t.Errorf("ActiveName() = %q, want google default", a.ActiveName())
	}
}

func TestAdapterErrorsWhenNoProviderLoads(t *testing.T) {
	r := NewRegistry()
	_, err := NewAdapter(r, "nonexistent", "", "en-US", nil, nil)
	if err == nil {
		t.Fatalf("expected an error when neither module nor default can load")
	}
}
