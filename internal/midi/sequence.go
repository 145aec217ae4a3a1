// SPDX-License-Identifier: MIT
package midi

import (
	"encoding/json"
	"fmt"
	"io"
)

// Sequence is the JSON note-list document accepted by the CLI and API:
//
//	{"bpm": 96, "notes": [{"pitch": 60, "velocity": 100, "start": 0, "duration": 0.5}]}
//
// A missing or null bpm leaves BPM nil; a zero bpm is treated the same way.
type Sequence struct {
	BPM   *float64 `json:"bpm,omitempty"`
	Notes []Note   `json:"notes"`
}

// DecodeSequence reads a Sequence from r.
func DecodeSequence(r io.Reader) (Sequence, error) {
	var s Sequence
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Sequence{}, fmt.Errorf("decoding note list: %w", err)
	}
	return s, nil
}

// Tempo returns the sequence tempo, or fallback when it has none.
func (s Sequence) Tempo(fallback float64) float64 {
	if s.BPM == nil || *s.BPM == 0 {
		return fallback
	}
	return *s.BPM
}

// Encode encodes the sequence, using fallback when it carries no tempo.
func (s Sequence) Encode(fallback float64) (File, error) {
	return Encode(s.Notes, s.Tempo(fallback))
}
