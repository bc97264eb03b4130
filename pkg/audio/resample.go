package audio

import "encoding/binary"

// Resampler converts 16-bit PCM between sample rates using linear
// interpolation. It records the trailing sample of each call in
// lastSample, but the interpolation only reads samples of the current
// buffer, so each chunk of a stream is resampled on its own and the
// chunk boundaries are not smoothed.
// Adapted from a float32 linear resampler to operate directly on the
// int16 PCM byte buffers this module passes around, since the target
// here is always 16-bit mono rather than an arbitrary device format.
type Resampler struct {
	fromRate   float64
	toRate     float64
	ratio      float64
	lastSample int16
}

// NewResampler builds a Resampler converting from fromRate Hz to toRate Hz.
func NewResampler(fromRate, toRate int) *Resampler {
	return &Resampler{
		fromRate: float64(fromRate),
		toRate:   float64(toRate),
		ratio:    float64(toRate) / float64(fromRate),
	}
}

// Resample converts a buffer of 16-bit little-endian PCM samples.
func (r *Resampler) Resample(pcm []byte) []byte {
	if r.ratio == 1.0 {
		return pcm
	}

	input := bytesToInt16(pcm)
	inputLen := len(input)
	if inputLen == 0 {
		return pcm
	}

	outputLen := int(float64(inputLen) * r.ratio)
	output := make([]int16, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / r.ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		sample1 := r.lastSample
		if srcIdx < inputLen {
			sample1 = input[srcIdx]
		}

		sample2 := sample1
		if srcIdx+1 < inputLen {
			sample2 = input[srcIdx+1]
		} else if srcIdx < inputLen {
			sample2 = input[inputLen-1]
		}

		output[i] = sample1 + int16(float64(sample2-sample1)*frac)
	}

	r.lastSample = input[inputLen-1]
	return int16ToBytes(output)
}

// Resample resamples a one-shot buffer without needing a Resampler
// instance, for callers (C7's file-decode path) that don't stream.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate {
		return pcm
	}
	return NewResampler(fromRate, toRate).Resample(pcm)
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

func int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}
