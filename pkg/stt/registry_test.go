package stt

import "testing"

func TestRegistryBuildsRegisteredProvider(t *testing.T) {
	r := NewRegistry()
	want := &fakeProvider{name: "groq"}
	if err := r.Register("groq", func(settings map[string]interface{}) (Provider, error) {
		return want, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Build("groq", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got != want {
		t.Errorf("Build returned a different provider than registered")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	factory := func(settings map[string]interface{}) (Provider, error) { return &fakeProvider{}, nil }
	if err := r.Register("groq", factory); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("groq", factory); err == nil {
		t.Fatalf("expected an error registering a duplicate name")
	}
}

func TestRegistryBuildUnknownNameErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Build("nonexistent", nil); err == nil {
		t.Fatalf("expected an error building an unregistered provider")
	}
}
