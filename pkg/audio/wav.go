package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NewWavBuffer is the teacher's original 16-bit-mono-only entry point,
// kept as a thin wrapper over EncodeWAV with sampleWidth fixed at 2.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	return EncodeWAV(pcm, sampleRate, 2)
}

// EncodeWAV wraps raw mono PCM in a RIFF/WAVE container at the given
// sample rate and bytes-per-sample. Generalized from the teacher's
// NewWavBuffer (which hard-coded 16-bit mono) to the bit widths the
// listener config allows (8/16/32-bit).
func EncodeWAV(pcm []byte, sampleRate, sampleWidth int) []byte {
	buf := new(bytes.Buffer)
	blockAlign := sampleWidth
	byteRate := sampleRate * blockAlign
	bitsPerSample := sampleWidth * 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV parses a RIFF/WAVE container and returns the raw PCM payload
// along with its format. Only uncompressed PCM (format tag 1) and mono
// or multi-channel layouts are supported; multi-channel input is
// downmixed to mono by averaging channels.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("audio: wav too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("audio: not a RIFF/WAVE file")
	}

	var (
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		formatTag     uint16
		pcm           []byte
		foundFmt      bool
		foundData     bool
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("audio: fmt chunk too short")
			}
			formatTag = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			foundFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
			foundData = true
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !foundFmt || !foundData {
		return nil, fmt.Errorf("audio: missing fmt or data chunk")
	}
	if formatTag != 1 {
		return nil, fmt.Errorf("audio: unsupported wav format tag %d (only PCM)", formatTag)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 32 {
		return nil, fmt.Errorf("audio: unsupported bit depth %d", bitsPerSample)
	}

	width := int(bitsPerSample / 8)
	if channels > 1 {
		pcm = downmix(pcm, int(channels), width)
	}

	return &Clip{
		Data:        pcm,
		SampleRate:  int(sampleRate),
		SampleWidth: width,
	}, nil
}

// downmix averages interleaved multi-channel PCM samples into mono.
func downmix(pcm []byte, channels, width int) []byte {
	frameSize := width * channels
	frames := len(pcm) / frameSize
	out := make([]byte, frames*width)

	for f := 0; f < frames; f++ {
		var sum int64
		base := f * frameSize
		for c := 0; c < channels; c++ {
			sum += int64(sampleAt(pcm, base+c*width, width))
		}
		avg := sum / int64(channels)
		putSample(out, f*width, width, avg)
	}
	return out
}

func sampleAt(pcm []byte, offset, width int) int32 {
	switch width {
	case 1:
		return int32(pcm[offset]) - 128
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(pcm[offset : offset+2])))
	case 4:
		return int32(binary.LittleEndian.Uint32(pcm[offset : offset+4]))
	default:
		return 0
	}
}

func putSample(out []byte, offset, width int, v int64) {
	switch width {
	case 1:
		out[offset] = byte(v + 128)
	case 2:
		binary.LittleEndian.PutUint16(out[offset:offset+2], uint16(int16(v)))
	case 4:
		binary.LittleEndian.PutUint32(out[offset:offset+4], uint32(int32(v)))
	}
}
