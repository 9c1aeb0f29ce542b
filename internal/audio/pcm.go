package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Int16s decodes little-endian s16 PCM. A trailing odd byte is ignored.
func Int16s(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// Float32s decodes little-endian s16 PCM into [-1, 1) floats.
func Float32s(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}
	return samples
}

// Bytes encodes samples as little-endian s16 PCM.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// RMS returns the root-mean-square amplitude of s16 PCM on the raw int16 scale.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// FrameBytes returns the s16 mono byte length of d at sampleRate.
func FrameBytes(sampleRate int, d time.Duration) int {
	samples := int(math.Round(d.Seconds() * float64(sampleRate)))
	if samples < 1 {
		samples = 1
	}
	return samples * 2
}

// FrameDuration is the inverse of FrameBytes.
func FrameDuration(sampleRate int, frameBytes int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frameBytes/2) * time.Second / time.Duration(sampleRate)
}
