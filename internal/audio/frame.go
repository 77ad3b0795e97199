// Package audio provides the sample-level building blocks of the
// transcription pipeline: audio frames, nearest-neighbor resampling,
// clamped float-to-PCM16 conversion and the minimum-chunk batcher that
// prepares audio for the wire protocol.
package audio

import "time"

// TargetSampleRate is the sample rate the speech service expects.
const TargetSampleRate = 24000

// Frame is a contiguous block of mono float32 samples captured from a
// single source, tagged with its native sample rate and arrival time.
type Frame struct {
	Samples    []float32
	SampleRate int
	Timestamp  time.Time
}

// Peak returns the instantaneous absolute-max sample magnitude of the
// frame. Used for UI level metering; not part of the protocol path.
func (f Frame) Peak() float32 {
	var peak float32
	for _, s := range f.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
