// SPDX-License-Identifier: MIT
/*
Package midi writes detected notes as a Standard MIDI File.

The output is always format 0 with a single track on channel 0 and a
division of 480 ticks per quarter note. No tempo meta-event is written;
the tempo only decides how seconds map onto ticks, so players that assume
the SMF default of 120 BPM reproduce the timing exactly at that tempo.

Encoding is a pure function of its input and is safe for concurrent use.
*/
package midi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

const (
	Division   = 480   // Ticks per quarter note.
	DefaultBPM = 120.0 // Tempo used when the caller gives none.

	statusNoteOn  = 0x90
	statusNoteOff = 0x80

	headerLen = 14
	trackHdr  = 8
)

var (
	ErrInvalidNote  = errors.New("invalid note")
	ErrInvalidTempo = errors.New("tempo must be finite and positive")
	ErrTickOverflow = errors.New("note time exceeds the encodable tick range")
)

// Note is one transcribed note. Start and Duration are in seconds relative
// to the start of the clip.
type Note struct {
	Pitch    int     `json:"pitch"`
	Velocity int     `json:"velocity"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Validate checks the note's fields.
func (n Note) Validate() error {
	switch {
	case n.Pitch < 0 || n.Pitch > 127:
		return fmt.Errorf("%w: pitch %d outside 0-127", ErrInvalidNote, n.Pitch)
	case n.Velocity < 0 || n.Velocity > 127:
		return fmt.Errorf("%w: velocity %d outside 0-127", ErrInvalidNote, n.Velocity)
	case !(n.Start >= 0) || math.IsInf(n.Start, 0):
		return fmt.Errorf("%w: start %v", ErrInvalidNote, n.Start)
	case !(n.Duration > 0) || math.IsInf(n.Duration, 0):
		return fmt.Errorf("%w: duration %v", ErrInvalidNote, n.Duration)
	}
	return nil
}

// File is an encoded Standard MIDI File. It is immutable.
type File struct {
	data []byte
}

// Bytes returns a copy of the encoded file.
func (f File) Bytes() []byte {
	return slices.Clone(f.data)
}

// Len returns the encoded size in bytes.
func (f File) Len() int {
	return len(f.data)
}

// WriteTo writes the file to w.
func (f File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.data)
	return int64(n), err
}

type event struct {
	tick   uint32
	status byte
	key    byte
	vel    byte
}

// Encode converts notes into a Standard MIDI File at bpm. A bpm of zero
// selects DefaultBPM. Every note is validated before any bytes are produced.
//
// Each note yields a note-on at its start tick and a note-off with velocity 0
// at its end tick. Events are ordered by tick; events on the same tick keep
// the order of the input notes, with a note's own on before its off.
func Encode(notes []Note, bpm float64) (File, error) {
	if bpm == 0 {
		bpm = DefaultBPM
	}
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return File{}, fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	secondsPerTick := (60 / bpm) / Division

	events := make([]event, 0, 2*len(notes))
	for i, n := range notes {
		if err := n.Validate(); err != nil {
			return File{}, fmt.Errorf("note %d: %w", i, err)
		}
		on, err := toTick(n.Start, secondsPerTick)
		if err != nil {
			return File{}, fmt.Errorf("note %d start: %w", i, err)
		}
		off, err := toTick(n.Start+n.Duration, secondsPerTick)
		if err != nil {
			return File{}, fmt.Errorf("note %d end: %w", i, err)
		}
		events = append(events,
			event{tick: on, status: statusNoteOn, key: byte(n.Pitch), vel: byte(n.Velocity)},
			event{tick: off, status: statusNoteOff, key: byte(n.Pitch)},
		)
	}

	slices.SortStableFunc(events, func(a, b event) int {
		switch {
		case a.tick < b.tick:
			return -1
		case a.tick > b.tick:
			return 1
		}
		return 0
	})

	// Worst case per event: 4 VLQ bytes plus 3 message bytes.
	track := make([]byte, 0, len(events)*7+4)
	var prev uint32
	for _, ev := range events {
		// Deltas never exceed the largest tick, which toTick bounds.
		track, _ = AppendVLQ(track, ev.tick-prev)
		track = append(track, ev.status, ev.key, ev.vel)
		prev = ev.tick
	}
	track = append(track, 0x00, 0xFF, 0x2F, 0x00)

	data := make([]byte, 0, headerLen+trackHdr+len(track))
	data = append(data, "MThd"...)
	data = binary.BigEndian.AppendUint32(data, 6)
	data = binary.BigEndian.AppendUint16(data, 0) // format
	data = binary.BigEndian.AppendUint16(data, 1) // tracks
	data = binary.BigEndian.AppendUint16(data, Division)
	data = append(data, "MTrk"...)
	data = binary.BigEndian.AppendUint32(data, uint32(len(track)))
	data = append(data, track...)

	return File{data: data}, nil
}

func toTick(seconds, secondsPerTick float64) (uint32, error) {
	t := math.Round(seconds / secondsPerTick)
	if !(t <= MaxVLQ) {
		return 0, fmt.Errorf("%w: %.3fs", ErrTickOverflow, seconds)
	}
	return uint32(t), nil
}
