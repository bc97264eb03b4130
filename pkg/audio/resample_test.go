package audio

import "testing"

func TestResampleIdentity(t *testing.T) {
	pcm := int16Samples(1, 2, 3, 4)
	got := Resample(pcm, 16000, 16000)
	if len(got) != len(pcm) {
		t.Fatalf("identity resample changed length: %d != %d", len(got), len(pcm))
	}
}

func TestResampleUpsampleLengthensBuffer(t *testing.T) {
	pcm := int16Samples(0, 1000, 2000, 3000, 4000, 5000, 6000, 7000)
	got := Resample(pcm, 8000, 16000)
	if len(got) <= len(pcm) {
		t.Fatalf("upsampling 8kHz->16kHz should lengthen the buffer: got %d, had %d", len(got), len(pcm))
	}
}

func TestResampleDownsampleShortensBuffer(t *testing.T) {
	pcm := int16Samples(0, 1000, 2000, 3000, 4000, 5000, 6000, 7000)
	got := Resample(pcm, 16000, 8000)
	if len(got) >= len(pcm) {
		t.Fatalf("downsampling 16kHz->8kHz should shorten the buffer: got %d, had %d", len(got), len(pcm))
	}
}

func TestResamplerCarriesLastSampleAcrossChunks(t *testing.T) {
	r := NewResampler(8000, 16000)
	first := r.Resample(int16Samples(100, 200, 300, 400))
	second := r.Resample(int16Samples(500, 600, 700, 800))
	if len(first) == 0 || len(second) == 0 {
		t.Fatalf("expected non-empty resampled chunks")
	}
	if r.lastSample != 800 {
		t.Fatalf("lastSample = %d, want 800 (last input sample of the second chunk)", r.lastSample)
	}
}
