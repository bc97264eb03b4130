package hotword

import "sync"

// Match reports one positive hot-word detection in a single check
// window.
type Match struct {
	Name   string
	Listen bool
}

// Set manages the collection of currently-active engines, each bound to
// its Spec, and runs the periodic FoundWakeWord check across all of
// them.
type Set struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	spec   Spec
	engine Engine
}

// NewSet builds an empty Set.
func NewSet() *Set {
	return &Set{entries: make(map[string]entry)}
}

// Add registers an engine under its spec's name. Replaces any existing
// engine with the same name.
func (s *Set) Add(spec Spec, engine Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[spec.Name] = entry{spec: spec, engine: engine}
}

// Remove drops a named engine from the set.
func (s *Set) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// Update feeds frame to every active engine's Update.
func (s *Set) Update(frame []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.spec.Active {
			e.engine.Update(frame)
		}
	}
}

// Check point-queries every active engine against window and returns a
// Match for each positive engine, in the same check window. Per
// spec.md §4.3, multiple positive engines all report; only listen=true
// engines additionally open an utterance (the caller inspects
// Match.Listen to decide that).
func (s *Set) Check(window []byte) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, e := range s.entries {
		if !e.spec.Active {
			continue
		}
		if e.engine.FoundWakeWord(window) {
			matches = append(matches, Match{Name: e.spec.Name, Listen: e.spec.Listen})
			e.engine.Reset()
		}
	}
	return matches
}

// Spec returns the spec for a named engine, and whether it exists.
func (s *Set) Spec(name string) (Spec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e.spec, ok
}

// SetActive toggles a named engine's active flag, used by
// neon.enable_wake_word/neon.disable_wake_word.
func (s *Set) SetActive(name string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.spec.Active = active
	s.entries[name] = e
	return true
}

// Specs returns a snapshot of every registered spec, for
// neon.get_wake_words.
func (s *Set) Specs() map[string]Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Spec, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.spec
	}
	return out
}

// ActiveListenCount reports how many active, listen=true engines are
// currently registered — used to refuse disabling the last one.
func (s *Set) ActiveListenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.spec.Active && e.spec.Listen {
			n++
		}
	}
	return n
}
