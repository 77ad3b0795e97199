package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// PCM16FromFloat32 converts float samples in [-1.0, 1.0] to 16-bit signed
// PCM. Out-of-range samples are clamped before scaling so they can never
// wrap around the int16 range.
func PCM16FromFloat32(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if s < 0 {
			out[i] = int16(s * 32768)
		} else {
			out[i] = int16(s * 32767)
		}
	}
	return out
}

// Float32FromPCM16 converts 16-bit signed PCM back to float samples.
// The round trip through PCM16FromFloat32 is accurate to within one LSB.
func Float32FromPCM16(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		if s < 0 {
			out[i] = float32(s) / 32768
		} else {
			out[i] = float32(s) / 32767
		}
	}
	return out
}

// EncodePCM16 serializes PCM samples as little-endian bytes and
// base64-encodes them for the wire protocol.
func EncodePCM16(pcm []int16) string {
	buf := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodePCM16 parses little-endian PCM16 bytes into samples. Trailing odd
// bytes are ignored.
func DecodePCM16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
