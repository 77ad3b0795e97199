package audio

// MinChunkSamples is the minimum number of samples accumulated before a
// chunk is flushed to the wire: 480 samples is 20ms at 24kHz. Batching
// below this bound would waste protocol message overhead on tiny payloads.
const MinChunkSamples = 480

// Batcher accumulates float samples and flushes them as base64-encoded
// PCM16 chunks once the minimum chunk size is reached. It never drops
// samples: everything pushed is eventually emitted by Push or Flush.
//
// Not safe for concurrent use; each transcription session owns one.
type Batcher struct {
	buf      []float32
	minChunk int
}

// NewBatcher returns a Batcher with the default minimum chunk size.
func NewBatcher() *Batcher {
	return NewBatcherSize(MinChunkSamples)
}

// NewBatcherSize returns a Batcher flushing at the given sample count.
func NewBatcherSize(minChunk int) *Batcher {
	if minChunk <= 0 {
		minChunk = MinChunkSamples
	}
	return &Batcher{minChunk: minChunk}
}

// Push appends samples to the accumulation buffer. When at least the
// minimum chunk size is buffered the whole buffer is flushed and returned
// as an encoded chunk; otherwise ok is false and the samples carry over.
func (b *Batcher) Push(samples []float32) (chunk string, ok bool) {
	b.buf = append(b.buf, samples...)
	if len(b.buf) < b.minChunk {
		return "", false
	}
	return b.flush()
}

// Flush drains any buffered samples regardless of the minimum chunk size.
// Intended for explicit stream stop; ok is false when nothing is buffered.
func (b *Batcher) Flush() (chunk string, ok bool) {
	if len(b.buf) == 0 {
		return "", false
	}
	return b.flush()
}

// Buffered returns the number of samples currently carried over.
func (b *Batcher) Buffered() int {
	return len(b.buf)
}

// Reset discards all buffered samples.
func (b *Batcher) Reset() {
	b.buf = b.buf[:0]
}

func (b *Batcher) flush() (string, bool) {
	chunk := EncodePCM16(PCM16FromFloat32(b.buf))
	b.buf = b.buf[:0]
	return chunk, true
}
