// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"pocket/internal/pitch"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordBitDepth is the sample depth of files written by WAVWriter.
const RecordBitDepth = 16

var ErrInvalidWAV = errors.New("not a valid PCM WAV file")

// DecodeWAV reads a PCM WAV stream and returns the first channel normalised
// to [-1, 1] together with the sample rate.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(d.NumChans)
	if channels < 1 || d.SampleRate == 0 {
		return nil, 0, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, channels, d.SampleRate)
	}

	bitDepth := int(d.BitDepth)
	scale := float32(audio.IntMaxSignedValue(bitDepth))
	if scale <= 0 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}

	samples := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		v := buf.Data[i]
		if bitDepth == 8 {
			v -= 128 // 8-bit PCM is unsigned.
		}
		samples = append(samples, clamp(float32(v)/scale))
	}
	return samples, int(d.SampleRate), nil
}

// ReadWAVFrames splits a WAV stream into analysis frames of frameSize
// samples advanced by hopSize. A trailing partial window is zero-padded
// when it holds at least half a frame of audio and dropped otherwise.
func ReadWAVFrames(r io.ReadSeeker, frameSize, hopSize int) ([]pitch.Frame, error) {
	if frameSize <= 0 || hopSize <= 0 || hopSize > frameSize {
		return nil, fmt.Errorf("invalid framing: frame %d, hop %d", frameSize, hopSize)
	}

	samples, sampleRate, err := DecodeWAV(r)
	if err != nil {
		return nil, err
	}

	var frames []pitch.Frame
	start := 0
	for ; start+frameSize <= len(samples); start += hopSize {
		frames = append(frames, pitch.Frame{
			Samples:    samples[start : start+frameSize : start+frameSize],
			SampleRate: sampleRate,
		})
	}

	if rest := len(samples) - start; rest > 0 && rest*2 >= frameSize {
		padded := make([]float32, frameSize)
		copy(padded, samples[start:])
		frames = append(frames, pitch.Frame{Samples: padded, SampleRate: sampleRate})
	}

	return frames, nil
}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	frames []pitch.Frame
}

var _ FrameSource = (*SliceSource)(nil)

// NewSliceSource returns a FrameSource over frames.
func NewSliceSource(frames []pitch.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Frames returns a closed, pre-filled channel holding every frame.
func (s *SliceSource) Frames() <-chan pitch.Frame {
	ch := make(chan pitch.Frame, len(s.frames))
	for _, f := range s.frames {
		ch <- f
	}
	close(ch)
	return ch
}

// WAVWriter encodes mono float samples as 16-bit PCM.
type WAVWriter struct {
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	closer io.Closer
	n      int
}

// NewWAVWriter writes to w. The header is finalised by Close, which does not
// close w.
func NewWAVWriter(w io.WriteSeeker, sampleRate int) *WAVWriter {
	return &WAVWriter{
		enc: wav.NewEncoder(w, sampleRate, RecordBitDepth, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: RecordBitDepth,
		},
	}
}

// CreateWAV creates the file at path and returns a writer that closes it.
func CreateWAV(path string, sampleRate int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewWAVWriter(f, sampleRate)
	w.closer = f
	return w, nil
}

// Write appends samples, clipping anything outside [-1, 1].
func (w *WAVWriter) Write(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]

	scale := float32(audio.IntMaxSignedValue(RecordBitDepth))
	for i, s := range samples {
		w.buf.Data[i] = int(clamp(s) * scale)
	}
	if err := w.enc.Write(w.buf); err != nil {
		return err
	}
	w.n += len(samples)
	return nil
}

// Samples returns how many samples have been written.
func (w *WAVWriter) Samples() int {
	return w.n
}

// Close finalises the WAV header and closes the file when CreateWAV opened it.
func (w *WAVWriter) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func clamp(v float32) float32 {
	return max(-1, min(1, v))
}
