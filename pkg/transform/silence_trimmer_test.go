package transform

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/voxloop/listener/pkg/audio"
)

func tone(samples int, amplitude int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(amplitude))
	}
	return out
}

func TestSilenceTrimmerTrimsAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	tr := NewSilenceTrimmer(10, dir)

	// Feed a long run of near-silence to establish a low noise floor.
	silent := audio.Frame{Data: tone(320, 5)}
	for i := 0; i < 50; i++ {
		tr.OnAudio(silent)
	}

	leadSilence := tone(1600, 5)
	speech := tone(1600, 8000)
	trailSilence := tone(1600, 5)
	clip := audio.Clip{
		Data:        append(append(leadSilence, speech...), trailSilence...),
		SampleRate:  16000,
		SampleWidth: 2,
	}

	out, delta, err := tr.OnSpeechEnd(clip)
	if err != nil {
		t.Fatalf("OnSpeechEnd: %v", err)
	}
	if len(out.Data) >= len(clip.Data) {
		t.Errorf("expected trimming to shorten the clip: got %d, had %d", len(out.Data), len(clip.Data))
	}

	path, ok := delta["audio_filename"].(string)
	if !ok || path == "" {
		t.Fatalf("expected audio_filename in delta, got %v", delta)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected temp wav to exist at %s: %v", path, err)
	}
}

func TestSilenceTrimmerKeepsClipIfAllBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	tr := NewSilenceTrimmer(10, dir)
	clip := audio.Clip{Data: tone(1600, 3), SampleRate: 16000, SampleWidth: 2}

	out, _, err := tr.OnSpeechEnd(clip)
	if err != nil {
		t.Fatalf("OnSpeechEnd: %v", err)
	}
	if len(out.Data) == 0 {
		t.Errorf("expected trimmer not to empty an all-quiet clip")
	}
}
