package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func int16Samples(vals ...int16) []byte {
	out := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}

func TestRMSSilence(t *testing.T) {
	pcm := int16Samples(0, 0, 0, 0)
	if got := RMS(pcm); got != 0 {
		t.Errorf("RMS(silence) = %v, want 0", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	pcm := int16Samples(32767, -32768, 32767, -32768)
	got := RMS(pcm)
	if got < 0.99 || got > 1.0 {
		t.Errorf("RMS(full scale) = %v, want ~1.0", got)
	}
}

func TestRMSEmpty(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
}

func TestDBFSSilenceIsNegInf(t *testing.T) {
	if got := DBFS(0); !math.IsInf(got, -1) {
		t.Errorf("DBFS(0) = %v, want -Inf", got)
	}
}

func TestClampDBFSFloors(t *testing.T) {
	if got := ClampDBFS(math.Inf(-1), -90); got != -90 {
		t.Errorf("ClampDBFS(-Inf) = %v, want -90", got)
	}
	if got := ClampDBFS(-100, -90); got != -90 {
		t.Errorf("ClampDBFS(-100, floor=-90) = %v, want -90", got)
	}
	if got := ClampDBFS(-10, -90); got != -10 {
		t.Errorf("ClampDBFS(-10, floor=-90) = %v, want -10", got)
	}
}
