package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned by [DecodeWAV] when the input is not a RIFF/WAVE
// container.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

const wavHeaderSize = 44

// EncodeWAV wraps PCM16LE data in a canonical RIFF/WAVE container with a
// single fmt and data chunk.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV stream and returns mono PCM16LE data
// and its sample rate. Multi-channel audio is downmixed to mono by
// averaging channels. Non-PCM encodings and sample widths other than 16
// bits are rejected.
func DecodeWAV(data []byte) (pcm []byte, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		channels   int
		bitsPer    int
		format     int
		havefmt    bool
		rawSamples []byte
	)

	// Walk the chunk list; tolerate extra chunks (LIST, fact, ...).
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("audio: wav fmt chunk too short (%d bytes)", size)
			}
			format = int(binary.LittleEndian.Uint16(data[body:]))
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPer = int(binary.LittleEndian.Uint16(data[body+14:]))
			havefmt = true
		case "data":
			rawSamples = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !havefmt || rawSamples == nil {
		return nil, 0, fmt.Errorf("audio: wav missing fmt or data chunk: %w", ErrNotWAV)
	}
	if format != 1 {
		return nil, 0, fmt.Errorf("audio: unsupported wav format code %d (want PCM)", format)
	}
	if bitsPer != 16 {
		return nil, 0, fmt.Errorf("audio: unsupported wav sample width %d bits (want 16)", bitsPer)
	}
	if channels < 1 {
		return nil, 0, fmt.Errorf("audio: invalid wav channel count %d", channels)
	}

	if channels == 1 {
		out := make([]byte, len(rawSamples)&^1)
		copy(out, rawSamples)
		return out, sampleRate, nil
	}

	// Downmix interleaved channels by averaging.
	frames := len(rawSamples) / (2 * channels)
	out := make([]byte, frames*2)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < channels; c++ {
			s := int16(binary.LittleEndian.Uint16(rawSamples[(f*channels+c)*2:]))
			sum += int(s)
		}
		binary.LittleEndian.PutUint16(out[f*2:], uint16(int16(sum/channels)))
	}
	return out, sampleRate, nil
}
