package stt

import "sync/atomic"

// Holder is a hot-swappable reference to the currently active Adapter,
// used so the reload controller (C8) can rebuild the STT stack on a
// `stt.module` config change without the long-lived consumer (C6) and
// facade (C7) goroutines needing to be restarted or re-wired.
type Holder struct {
	ptr atomic.Pointer[Adapter]
}

// NewHolder wraps an initial Adapter.
func NewHolder(a *Adapter) *Holder {
	h := &Holder{}
	h.ptr.Store(a)
	return h
}

// Get returns the currently active Adapter.
func (h *Holder) Get() *Adapter {
	return h.ptr.Load()
}

// Set atomically swaps in a newly built Adapter.
func (h *Holder) Set(a *Adapter) {
	h.ptr.Store(a)
}
