// SPDX-License-Identifier: MIT
package audio

// Framer cuts a continuous mono stream into overlapping windows of size
// samples, advancing by hop samples between windows.
type Framer struct {
	size int
	hop  int
	buf  []float32
}

// NewFramer returns a Framer. hop must be in (0, size].
func NewFramer(size, hop int) *Framer {
	return &Framer{size: size, hop: hop, buf: make([]float32, 0, size)}
}

// Push appends samples and calls emit for every completed window. The slice
// passed to emit is reused after emit returns.
func (f *Framer) Push(samples []float32, emit func([]float32)) {
	for len(samples) > 0 {
		n := min(f.size-len(f.buf), len(samples))
		f.buf = append(f.buf, samples[:n]...)
		samples = samples[n:]

		if len(f.buf) == f.size {
			emit(f.buf)
			f.buf = f.buf[:copy(f.buf, f.buf[f.hop:])]
		}
	}
}

// Reset discards buffered samples.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
