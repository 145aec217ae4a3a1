// SPDX-License-Identifier: MIT
package tuner

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pocket/internal/note"
	"pocket/internal/pitch"
)

// Reading is one analysed frame: either a labelled pitch or nothing.
type Reading struct {
	Time      time.Time
	Detected  bool
	Frequency float64
	Label     note.Label
}

// NewReading labels est. A pitch whose nearest note lies outside the MIDI
// range is reported as not detected.
func NewReading(est pitch.Estimate, at time.Time) Reading {
	r := Reading{Time: at}
	hz, ok := est.Frequency()
	if !ok {
		return r
	}

	label, err := note.FrequencyToNote(hz)
	if err != nil {
		return r
	}

	r.Detected = true
	r.Frequency = hz
	r.Label = label
	return r
}

func (r Reading) String() string {
	if !r.Detected {
		return "--"
	}
	return fmt.Sprintf("%s (%.2f Hz)", r.Label, r.Frequency)
}

type readingJSON struct {
	Time      time.Time `json:"time"`
	Detected  bool      `json:"detected"`
	Frequency float64   `json:"frequency,omitempty"`
	Note      string    `json:"note,omitempty"`
	Octave    *int      `json:"octave,omitempty"`
	Cents     *int      `json:"cents,omitempty"`
	MIDI      *int      `json:"midi,omitempty"`
}

// MarshalJSON flattens the label; note fields are omitted when nothing was
// detected.
func (r Reading) MarshalJSON() ([]byte, error) {
	v := readingJSON{Time: r.Time, Detected: r.Detected}
	if r.Detected {
		l := r.Label
		v.Frequency = r.Frequency
		v.Note = l.Class.String()
		v.Octave, v.Cents, v.MIDI = &l.Octave, &l.Cents, &l.MIDI
	}
	return json.Marshal(v)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var v readingJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Reading{Time: v.Time, Detected: v.Detected}
	if !v.Detected {
		return nil
	}
	if v.Octave == nil || v.Cents == nil || v.MIDI == nil {
		return errors.New("detected reading without octave, cents or midi")
	}

	class, err := note.ParsePitchClass(v.Note)
	if err != nil {
		return err
	}
	r.Frequency = v.Frequency
	r.Label = note.Label{Class: class, Octave: *v.Octave, Cents: *v.Cents, MIDI: *v.MIDI}
	return nil
}
