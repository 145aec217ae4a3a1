// SPDX-License-Identifier: MIT
package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pocket/internal/midi"
	"pocket/internal/note"
	"pocket/internal/pitch"
	"pocket/internal/transcribe"
	"pocket/internal/tuner"
)

var errUnavailable = errors.New("not available on this server")

type labelResponse struct {
	Name      string  `json:"name"`
	Note      string  `json:"note"`
	Octave    int     `json:"octave"`
	Cents     int     `json:"cents"`
	MIDI      int     `json:"midi"`
	Frequency float64 `json:"frequency"`
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	freq, err := strconv.ParseFloat(r.URL.Query().Get("freq"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid freq: %w", err))
		return
	}

	label, err := note.FrequencyToNote(freq)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, labelResponse{
		Name:      label.Name(),
		Note:      label.Class.String(),
		Octave:    label.Octave,
		Cents:     label.Cents,
		MIDI:      label.MIDI,
		Frequency: freq,
	})
}

// handleFrequency accepts either note=C%23&octave=4 or a full name in note.
func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("note"))

	var (
		class  note.PitchClass
		octave int
		err    error
	)
	if o := q.Get("octave"); o != "" {
		var carry int
		class, carry, err = note.ParseSpelling(name)
		if err == nil {
			octave, err = strconv.Atoi(o)
			octave += carry
		}
	} else {
		class, octave, err = note.ParseName(name)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	freq, err := note.NoteToFrequency(class, octave)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, _ := note.MIDINumber(class, octave)

	writeJSON(w, http.StatusOK, labelResponse{
		Name:      fmt.Sprintf("%s%d", class, octave),
		Note:      class.String(),
		Octave:    octave,
		MIDI:      n,
		Frequency: freq,
	})
}

type pitchRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

func (s *Server) handlePitch(w http.ResponseWriter, r *http.Request) {
	var req pitchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	est, err := s.opts.Estimator.Estimate(pitch.Frame{Samples: req.Samples, SampleRate: req.SampleRate})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, tuner.NewReading(est, s.now()))
}

func (s *Server) handleMIDI(w http.ResponseWriter, r *http.Request) {
	seq, err := midi.DecodeSequence(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := seq.Encode(s.opts.DefaultBPM)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeMIDI(w, f, "sequence.mid")
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.opts.Transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("transcription %w", errUnavailable))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClipBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	clip := transcribe.Clip{Name: "upload.wav", Data: data}
	f, _, err := transcribe.Export(r.Context(), s.opts.Transcriber, clip, s.opts.DefaultBPM)
	switch {
	case errors.Is(err, transcribe.ErrEmptyClip):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeMIDI(w, f, "transcription.mid")
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	if s.opts.Readings == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("live readings %w", errUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Readings.Latest())
}

func writeMIDI(w http.ResponseWriter, f midi.File, filename string) {
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(f.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(f.Bytes()))
}
