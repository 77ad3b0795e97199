package audio

// Resample converts samples from srcRate to dstRate using nearest-neighbor
// (sample-and-hold) selection. This is a deliberately cheap approximation:
// speech recognition tolerates the minor aliasing, and it keeps the capture
// callback path allocation-light. Returns the input slice unchanged when
// the rates already match.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || len(samples) == 0 {
		return samples
	}

	outLen := len(samples) * dstRate / srcRate
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		j := i * srcRate / dstRate
		if j >= len(samples) {
			j = len(samples) - 1
		}
		out[i] = samples[j]
	}
	return out
}
