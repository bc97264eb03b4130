package micsource

import "sync/atomic"

// muteCounter is the saturating counter backing ListenerState.muted_depth:
// Mute increments, Unmute decrements saturating at 0, muted iff the
// counter is greater than 0. Shared between MalgoSource and MemorySource
// so both implementations agree on mute/unmute idempotency.
type muteCounter struct {
	depth int32
}

func (m *muteCounter) mute() {
	atomic.AddInt32(&m.depth, 1)
}

func (m *muteCounter) unmute() {
	for {
		cur := atomic.LoadInt32(&m.depth)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&m.depth, cur, cur-1) {
			return
		}
	}
}

func (m *muteCounter) forceUnmute() {
	atomic.StoreInt32(&m.depth, 0)
}

func (m *muteCounter) isMuted() bool {
	return atomic.LoadInt32(&m.depth) > 0
}
