// SPDX-License-Identifier: MIT
/*
Package transcribe sends recorded clips to a note transcription service and
turns the returned note list into a MIDI file.

The service is an external collaborator: it receives the clip as a WAV
request body and answers with

	{"bpm": 96, "notes": [{"pitch": 60, "velocity": 100, "start": 0, "duration": 0.5}]}

where bpm may be null or absent. Requests are not retried here.
*/
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pocket/internal/midi"
)

var ErrEmptyClip = errors.New("clip has no audio data")

// Clip is a WAV-encoded recording.
type Clip struct {
	Name string
	Data []byte
}

// ReadClip loads a WAV file from disk.
func ReadClip(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Name: filepath.Base(path), Data: data}, nil
}

// Transcriber converts a clip to notes.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (midi.Sequence, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, clip Clip) (midi.Sequence, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, clip Clip) (midi.Sequence, error) {
	return f(ctx, clip)
}

// Export transcribes clip and encodes the notes, using defaultBPM when the
// service reported no tempo.
func Export(ctx context.Context, t Transcriber, clip Clip, defaultBPM float64) (midi.File, midi.Sequence, error) {
	if len(clip.Data) == 0 {
		return midi.File{}, midi.Sequence{}, ErrEmptyClip
	}

	seq, err := t.Transcribe(ctx, clip)
	if err != nil {
		return midi.File{}, midi.Sequence{}, err
	}

	f, err := seq.Encode(defaultBPM)
	if err != nil {
		return midi.File{}, seq, fmt.Errorf("encoding transcription of %s: %w", clip.Name, err)
	}
	return f, seq, nil
}
