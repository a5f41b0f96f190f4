// Package audio provides the PCM primitives shared by the talkback client
// and servers: sample conversion, RMS energy measurement, a bounded
// drop-oldest frame queue, WAV framing, and the capture/playback device
// contracts.
//
// All audio in the pipeline is 16-bit signed little-endian PCM ("PCM16LE"),
// mono, at a configured sample rate. A "frame" (or "chunk") is one capture
// callback's worth of samples.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// rmsEpsilon is added under the square root so that an all-zero signal
// yields a well-defined near-zero RMS instead of tripping on -0.0 noise.
const rmsEpsilon = 1e-12

// Float32Samples converts raw PCM16LE bytes to normalized float32 samples
// in the range [-1.0, 1.0). A trailing odd byte is ignored.
func Float32Samples(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root-mean-square energy of a PCM16LE signal, normalized
// to the ±1.0 sample range. The result is used as the voice/silence
// discriminator throughout the pipeline: a frame is "voiced" when its RMS
// meets the configured silence threshold.
//
// An empty (or sub-sample) input returns 0.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum/float64(n) + rmsEpsilon)
}

// SilenceFrame returns an all-zero PCM16LE frame of n bytes. The client
// sender transmits a short run of these after an utterance ends so the
// server's silence timeout fires promptly.
func SilenceFrame(n int) []byte {
	return make([]byte, n)
}

// BytesPerChunk returns the size in bytes of one PCM16LE mono frame of
// chunkMs milliseconds at the given sample rate.
func BytesPerChunk(sampleRate, chunkMs int) int {
	return sampleRate * chunkMs / 1000 * 2
}

// Seconds returns the playing time in seconds of byteLen bytes of PCM16LE
// mono audio at the given sample rate.
func Seconds(byteLen, sampleRate int) float64 {
	return float64(byteLen) / 2 / float64(sampleRate)
}

// Duration returns the playing time of byteLen bytes of PCM16LE mono audio
// at the given sample rate as a time.Duration.
func Duration(byteLen, sampleRate int) time.Duration {
	return time.Duration(Seconds(byteLen, sampleRate) * float64(time.Second))
}
