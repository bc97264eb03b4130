package hotword

import (
	"encoding/binary"
	"testing"
)

func loudFrame(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(20000))
	}
	return out
}

func quietFrame(n int) []byte {
	return make([]byte, n*2)
}

func TestRMSEnergyEngineConfirmsAfterConsecutiveFrames(t *testing.T) {
	e := NewRMSEnergyEngine(0.1, 3)

	e.Update(loudFrame(160))
	if e.FoundWakeWord(quietFrame(160)) {
		t.Fatalf("expected no match before minConfirmed consecutive loud frames")
	}
	e.Update(loudFrame(160))
	e.Update(loudFrame(160))

	if !e.FoundWakeWord(quietFrame(160)) {
		t.Fatalf("expected a confirmed match after 3 consecutive loud frames")
	}
}

func TestRMSEnergyEngineResetsOnQuietFrame(t *testing.T) {
	e := NewRMSEnergyEngine(0.1, 3)
	e.Update(loudFrame(160))
	e.Update(loudFrame(160))
	e.Update(quietFrame(160)) // breaks the streak
	e.Update(loudFrame(160))

	if e.FoundWakeWord(quietFrame(160)) {
		t.Fatalf("expected streak reset by an intervening quiet frame")
	}
}

func TestRMSEnergyEngineResetClearsConfirmedState(t *testing.T) {
	e := NewRMSEnergyEngine(0.1, 1)
	e.Update(loudFrame(160))
	if !e.FoundWakeWord(quietFrame(160)) {
		t.Fatalf("expected confirmed match")
	}
	e.Reset()
	if e.FoundWakeWord(quietFrame(160)) {
		t.Fatalf("expected Reset to clear confirmed state")
	}
}

func TestRMSEnergyEngineColdPointQuery(t *testing.T) {
	e := NewRMSEnergyEngine(0.1, 3)
	if !e.FoundWakeWord(loudFrame(160)) {
		t.Fatalf("expected a cold point query over a loud window to match")
	}
}
