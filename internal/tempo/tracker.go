// SPDX-License-Identifier: MIT
/*
Package tempo derives a tempo from tapped beats.

A Tracker keeps the tap timestamps of the last few seconds and averages the
intervals between them. Taps older than the staleness window, measured from
the newest tap, are discarded so the tempo follows the current tapping only.

A Tracker is not safe for concurrent use; callers sharing one must serialise
RecordTap and Reset.
*/
package tempo

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultStaleness is how far back from the newest tap history is kept.
const DefaultStaleness = 3000 * time.Millisecond

// BPM is either a known tempo or Unknown. The zero value is Unknown.
type BPM struct {
	value float64
	known bool
}

// Unknown means fewer than two usable taps are in the window.
var Unknown = BPM{}

// Value returns the tempo and whether one is known.
func (b BPM) Value() (float64, bool) {
	return b.value, b.known
}

// Known reports whether a tempo could be computed.
func (b BPM) Known() bool {
	return b.known
}

func (b BPM) String() string {
	if !b.known {
		return "insufficient data"
	}
	return fmt.Sprintf("%.0f BPM", b.value)
}

// Tracker accumulates taps. Timestamps are milliseconds since any fixed
// epoch; only differences matter.
type Tracker struct {
	staleness int64
	taps      []int64
	intervals []float64

	epoch time.Time // First Tap; later taps are measured from it.
}

// NewTracker returns a Tracker using the given staleness window. A
// non-positive window selects DefaultStaleness.
func NewTracker(staleness time.Duration) *Tracker {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Tracker{staleness: staleness.Milliseconds()}
}

// Staleness returns the window length.
func (t *Tracker) Staleness() time.Duration {
	return time.Duration(t.staleness) * time.Millisecond
}

// Tap records a tap at now, measured as elapsed time since the first Tap.
// Times read from time.Now carry a monotonic clock reading, so wall clock
// adjustments between taps do not disturb the window.
func (t *Tracker) Tap(now time.Time) BPM {
	if t.epoch.IsZero() {
		t.epoch = now
	}
	return t.RecordTap(now.Sub(t.epoch).Milliseconds())
}

// RecordTap adds a tap at nowMs, drops taps older than the window and
// returns the averaged tempo.
//
// A tap at the same millisecond as the newest one is ignored, and a tap
// earlier than the newest one restarts the window from that tap. Neither can
// therefore contribute a zero or negative interval.
func (t *Tracker) RecordTap(nowMs int64) BPM {
	if n := len(t.taps); n > 0 {
		last := t.taps[n-1]
		if nowMs == last {
			return t.BPM()
		}
		if nowMs < last {
			t.taps = t.taps[:0]
		}
	}
	t.taps = append(t.taps, nowMs)

	cutoff := nowMs - t.staleness
	keep := 0
	for keep < len(t.taps) && t.taps[keep] < cutoff {
		keep++
	}
	if keep > 0 {
		t.taps = t.taps[:copy(t.taps, t.taps[keep:])]
	}

	return t.BPM()
}

// BPM returns the tempo of the taps currently in the window.
func (t *Tracker) BPM() BPM {
	if len(t.taps) < 2 {
		return Unknown
	}

	t.intervals = t.intervals[:0]
	for i := 1; i < len(t.taps); i++ {
		t.intervals = append(t.intervals, float64(t.taps[i]-t.taps[i-1]))
	}

	mean := stat.Mean(t.intervals, nil)
	if !(mean > 0) {
		return Unknown
	}
	return BPM{value: math.Round(60000 / mean), known: true}
}

// Len returns the number of taps in the window.
func (t *Tracker) Len() int {
	return len(t.taps)
}

// Reset clears all taps.
func (t *Tracker) Reset() {
	t.taps = t.taps[:0]
	t.intervals = t.intervals[:0]
}
