// SPDX-License-Identifier: MIT
/*
Package pitch estimates the fundamental frequency of a single mono audio
frame using time-domain autocorrelation.

The estimator is stateless between calls: scratch buffers come from a
sync.Pool, so one Estimator may be shared by any number of goroutines.

Scaling limit: the autocorrelation is O(n^2) in frame length. At the
default 2048-sample window this is ~4M multiply-adds per frame; frames
longer than Config.MaxFrameSize are rejected rather than silently
processed.
*/
package pitch

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultFrameSize        = 2048 // Analysis window in samples.
	DefaultNoiseFloor       = 0.01 // RMS below this is treated as silence.
	DefaultTriggerThreshold = 0.2  // Absolute amplitude bounding the trimmed region.
	DefaultMaxFrameSize     = 8192 // Upper bound keeping the O(n^2) correlation bounded.
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrFrameTooLong      = errors.New("frame exceeds maximum analysis size")
	ErrInvalidSample     = errors.New("frame contains a non-finite sample")
)

// Frame is one window of mono samples in [-1.0, 1.0]. The estimator never
// retains or modifies Samples.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Estimate is the result of one analysis: either a detected, strictly
// positive frequency or NotDetected. The zero value is NotDetected.
type Estimate struct {
	frequency float64
	detected  bool
}

// NotDetected is returned when the frame holds no usable pitch.
var NotDetected = Estimate{}

// Detected wraps a frequency in Hz. Non-positive or non-finite values yield
// NotDetected.
func Detected(hz float64) Estimate {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return NotDetected
	}
	return Estimate{frequency: hz, detected: true}
}

// Frequency returns the estimated frequency and whether a pitch was detected.
func (e Estimate) Frequency() (float64, bool) {
	return e.frequency, e.detected
}

// IsDetected reports whether a pitch was found.
func (e Estimate) IsDetected() bool {
	return e.detected
}

func (e Estimate) String() string {
	if !e.detected {
		return "no pitch"
	}
	return fmt.Sprintf("%.2f Hz", e.frequency)
}

// Config holds the estimator thresholds.
type Config struct {
	NoiseFloor       float64 // RMS silence gate.
	TriggerThreshold float64 // Trim bound on absolute amplitude.
	MaxFrameSize     int     // Longest accepted frame in samples.
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		NoiseFloor:       DefaultNoiseFloor,
		TriggerThreshold: DefaultTriggerThreshold,
		MaxFrameSize:     DefaultMaxFrameSize,
	}
}

// workspace holds the per-call scratch buffers.
type workspace struct {
	signal      []float64
	correlation []float64
}

// Estimator performs autocorrelation pitch detection.
type Estimator struct {
	cfg  Config
	pool sync.Pool
}

// NewEstimator validates cfg and returns an Estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if !(cfg.NoiseFloor >= 0) || cfg.NoiseFloor >= 1 {
		return nil, fmt.Errorf("noise floor must be in [0, 1), got %v", cfg.NoiseFloor)
	}
	if !(cfg.TriggerThreshold >= 0) || cfg.TriggerThreshold >= 1 {
		return nil, fmt.Errorf("trigger threshold must be in [0, 1), got %v", cfg.TriggerThreshold)
	}
	if cfg.MaxFrameSize <= 0 {
		return nil, fmt.Errorf("max frame size must be positive, got %d", cfg.MaxFrameSize)
	}

	e := &Estimator{cfg: cfg}
	e.pool.New = func() any {
		return &workspace{
			signal:      make([]float64, 0, DefaultFrameSize),
			correlation: make([]float64, 0, DefaultFrameSize),
		}
	}
	return e, nil
}

var defaultEstimator, _ = NewEstimator(DefaultConfig())

// Detect runs an estimator with the default thresholds on f.
func Detect(f Frame) (Estimate, error) {
	return defaultEstimator.Estimate(f)
}

// Config returns the thresholds the estimator was built with.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate returns the fundamental frequency of f, or NotDetected when the
// frame is silent or has no periodic structure. An error is returned only
// for malformed frames.
func (e *Estimator) Estimate(f Frame) (Estimate, error) {
	if f.SampleRate <= 0 {
		return NotDetected, fmt.Errorf("%w: %d", ErrInvalidSampleRate, f.SampleRate)
	}
	n := len(f.Samples)
	if n > e.cfg.MaxFrameSize {
		return NotDetected, fmt.Errorf("%w: %d > %d", ErrFrameTooLong, n, e.cfg.MaxFrameSize)
	}
	if n == 0 {
		return NotDetected, nil
	}

	ws := e.pool.Get().(*workspace)
	defer e.pool.Put(ws)

	ws.signal = grow(ws.signal, n)
	buf := ws.signal
	for i, s := range f.Samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NotDetected, fmt.Errorf("%w at index %d", ErrInvalidSample, i)
		}
		buf[i] = v
	}

	rms := floats.Norm(buf, 2) / math.Sqrt(float64(n))
	if rms < e.cfg.NoiseFloor {
		return NotDetected, nil
	}

	buf = trim(buf, e.cfg.TriggerThreshold)
	size := len(buf)

	ws.correlation = grow(ws.correlation, size)
	c := ws.correlation
	for lag := range size {
		c[lag] = floats.Dot(buf[:size-lag], buf[lag:])
	}

	period, ok := peakLag(c)
	if !ok {
		return NotDetected, nil
	}

	return Detected(float64(f.SampleRate) / period), nil
}

// trim returns the region of buf bounded by the first and last samples whose
// magnitude exceeds threshold. With no such sample buf is returned whole.
func trim(buf []float64, threshold float64) []float64 {
	first, last := -1, -1
	for i, v := range buf {
		if math.Abs(v) > threshold {
			first = i
			break
		}
	}
	if first < 0 {
		return buf
	}
	for i := len(buf) - 1; i >= first; i-- {
		if math.Abs(buf[i]) > threshold {
			last = i
			break
		}
	}
	return buf[first : last+1]
}

// peakLag finds the period in samples from the autocorrelation c. The
// descending run from lag 0 is skipped, the highest remaining lag is taken
// and refined by three-point parabolic interpolation.
func peakLag(c []float64) (float64, bool) {
	size := len(c)

	d := 0
	for d < size-1 && c[d] > c[d+1] {
		d++
	}
	// Monotonic correlation, e.g. DC or content below the window's lowest
	// resolvable frequency.
	if d >= size-1 {
		return 0, false
	}

	pos := d + floats.MaxIdx(c[d:])
	if pos <= 0 {
		return 0, false
	}

	period := float64(pos)
	if pos+1 < size {
		x1, x2, x3 := c[pos-1], c[pos], c[pos+1]
		a := (x1 + x3 - 2*x2) / 2
		b := (x3 - x1) / 2
		if a != 0 {
			period -= b / (2 * a)
		}
	}

	if !(period > 0) || math.IsInf(period, 0) {
		return 0, false
	}
	return period, true
}

// grow returns s resized to n, reallocating only when capacity is short.
func grow(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
