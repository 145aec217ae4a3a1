// SPDX-License-Identifier: MIT
/*
Package note maps frequencies to equal-tempered note labels and back.

All conversions are anchored to A4 = 440 Hz and use MIDI-style semitone
numbering (69 = A4). The domain is bounded to the MIDI range 0-127, so
octaves run from -1 (C-1, MIDI 0) to 9 (G9, MIDI 127).
*/
package note

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ReferenceFrequency = 440.0 // A4 in Hz.
	ReferenceMIDI      = 69    // MIDI number of A4.

	MinMIDI   = 0
	MaxMIDI   = 127
	MinOctave = -1
	MaxOctave = 9

	semitonesPerOctave = 12
	centsPerOctave     = 1200
)

var (
	ErrInvalidFrequency  = errors.New("frequency must be finite and positive")
	ErrInvalidPitchClass = errors.New("invalid pitch class")
	ErrOutOfRange        = errors.New("note outside MIDI range 0-127")
)

// PitchClass is one of the 12 semitone names, indexed from C.
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var pitchClassNames = [semitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Valid reports whether p is one of the 12 defined pitch classes.
func (p PitchClass) Valid() bool {
	return p >= C && p <= B
}

func (p PitchClass) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PitchClass(%d)", int(p))
	}
	return pitchClassNames[p]
}

// ParsePitchClass accepts sharp and flat spellings, case-insensitive on the
// letter: "C#", "db", "Bb", "e".
func ParsePitchClass(s string) (PitchClass, error) {
	class, _, err := ParseSpelling(s)
	return class, err
}

// ParseSpelling is ParsePitchClass plus the octave carry of spellings that
// cross the B/C boundary: "Cb" is a B one octave down (-1) and "B#" is a C
// one octave up (+1). Every other spelling carries 0.
func ParseSpelling(s string) (PitchClass, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty name", ErrInvalidPitchClass)
	}

	var base PitchClass
	switch strings.ToUpper(s[:1]) {
	case "C":
		base = C
	case "D":
		base = D
	case "E":
		base = E
	case "F":
		base = F
	case "G":
		base = G
	case "A":
		base = A
	case "B":
		base = B
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPitchClass, s)
	}

	switch s[1:] {
	case "":
		return base, 0, nil
	case "#", "♯":
		if base == B {
			return C, 1, nil
		}
		return base + 1, 0, nil
	case "b", "♭":
		if base == C {
			return B, -1, nil
		}
		return base - 1, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPitchClass, s)
	}
}

// Label is a frequency expressed as the nearest equal-tempered note plus the
// deviation from it in cents.
type Label struct {
	Class  PitchClass
	Octave int
	Cents  int
	MIDI   int
}

// Name returns the scientific pitch name, e.g. "A4" or "C#-1".
func (l Label) Name() string {
	return fmt.Sprintf("%s%d", l.Class, l.Octave)
}

func (l Label) String() string {
	return fmt.Sprintf("%s %+dc", l.Name(), l.Cents)
}

// MIDINumber returns the MIDI number of the given note.
func MIDINumber(class PitchClass, octave int) (int, error) {
	if !class.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPitchClass, int(class))
	}
	if octave < MinOctave || octave > MaxOctave {
		return 0, fmt.Errorf("%w: octave %d", ErrOutOfRange, octave)
	}
	n := (octave+1)*semitonesPerOctave + int(class)
	if n > MaxMIDI {
		return 0, fmt.Errorf("%w: %s%d", ErrOutOfRange, class, octave)
	}
	return n, nil
}

// MIDIFrequency returns the equal-tempered frequency of a MIDI number. It does
// not range-check n.
func MIDIFrequency(n int) float64 {
	return ReferenceFrequency * math.Pow(2, float64(n-ReferenceMIDI)/semitonesPerOctave)
}

// NoteToFrequency returns the frequency of class in octave.
func NoteToFrequency(class PitchClass, octave int) (float64, error) {
	n, err := MIDINumber(class, octave)
	if err != nil {
		return 0, err
	}
	return MIDIFrequency(n), nil
}

// FrequencyToNote labels freq with its nearest semitone. Cents are floored,
// so they fall in [-50, 49] with exact note frequencies mapping to 0.
func FrequencyToNote(freq float64) (Label, error) {
	if math.IsNaN(freq) || math.IsInf(freq, 0) || freq <= 0 {
		return Label{}, fmt.Errorf("%w: %v", ErrInvalidFrequency, freq)
	}

	n := int(math.Round(semitonesPerOctave*math.Log2(freq/ReferenceFrequency))) + ReferenceMIDI
	if n < MinMIDI || n > MaxMIDI {
		return Label{}, fmt.Errorf("%w: %.3f Hz", ErrOutOfRange, freq)
	}

	label, _ := MIDILabel(n)
	label.Cents = int(math.Floor(centsPerOctave * math.Log2(freq/MIDIFrequency(n))))
	return label, nil
}

// MIDILabel returns the in-tune label of MIDI number n.
func MIDILabel(n int) (Label, error) {
	if n < MinMIDI || n > MaxMIDI {
		return Label{}, fmt.Errorf("%w: MIDI %d", ErrOutOfRange, n)
	}
	return Label{
		Class:  PitchClass(n % semitonesPerOctave),
		Octave: n/semitonesPerOctave - 1,
		MIDI:   n,
	}, nil
}

// ParseName splits a scientific pitch name such as "C#4", "Bb-1" or "a3"
// into its pitch class and octave. The octave is that of the sounding note,
// so "Cb4" is B3 and "B#3" is C4.
func ParseName(s string) (PitchClass, int, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, "-0123456789")
	if i <= 0 {
		return 0, 0, fmt.Errorf("%w: %q has no octave", ErrInvalidPitchClass, s)
	}
	class, carry, err := ParseSpelling(s[:i])
	if err != nil {
		return 0, 0, err
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	return class, octave + carry, nil
}
