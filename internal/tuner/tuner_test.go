// SPDX-License-Identifier: MIT
package tuner

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"pocket/internal/audio"
	"pocket/internal/note"
	"pocket/internal/pitch"
	"pocket/internal/transport"
	"pocket/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 44100

func sine(hz float64) pitch.Frame {
	return pitch.Frame{Samples: utils.GenerateSineWave(pitch.DefaultFrameSize, sampleRate, hz, 0.8), SampleRate: sampleRate}
}

func newTuner(t *testing.T, transports ...*utils.MockTransport) *Tuner {
	t.Helper()
	est, err := pitch.NewEstimator(pitch.DefaultConfig())
	require.NoError(t, err)

	var ts []transport.Transport
	for _, m := range transports {
		ts = append(ts, m)
	}
	tn := New(est, ts...)
	tn.now = func() time.Time { return time.Unix(100, 0) }
	return tn
}

func TestProcess(t *testing.T) {
	mock := &utils.MockTransport{}
	tn := newTuner(t, mock)

	r, err := tn.Process(sine(440))
	require.NoError(t, err)
	require.True(t, r.Detected)
	assert.InDelta(t, 440, r.Frequency, 1)
	assert.Equal(t, "A4", r.Label.Name())
	assert.Equal(t, 69, r.Label.MIDI)
	assert.Equal(t, time.Unix(100, 0), r.Time)

	assert.Equal(t, r, tn.Latest())
	require.Len(t, mock.Sent(), 1)
	assert.Equal(t, r, mock.Sent()[0])
}

func TestProcessSilence(t *testing.T) {
	tn := newTuner(t)
	r, err := tn.Process(pitch.Frame{Samples: make([]float32, 1024), SampleRate: sampleRate})
	require.NoError(t, err)
	assert.False(t, r.Detected)
	assert.Equal(t, "--", r.String())
	assert.Equal(t, Stats{Frames: 1}, tn.Stats())
}

func TestProcessInvalidFrame(t *testing.T) {
	mock := &utils.MockTransport{}
	tn := newTuner(t, mock)

	_, err := tn.Process(pitch.Frame{Samples: make([]float32, 16)})
	assert.ErrorIs(t, err, pitch.ErrInvalidSampleRate)
	assert.Empty(t, mock.Sent(), "malformed frames are not published")
	assert.Equal(t, Stats{Frames: 1, Errors: 1}, tn.Stats())
}

func TestProcessTransportErrorIsNotFatal(t *testing.T) {
	failing := &utils.MockTransport{Err: errors.New("boom")}
	ok := &utils.MockTransport{}
	tn := newTuner(t, failing, ok)

	_, err := tn.Process(sine(330))
	require.NoError(t, err)
	assert.Len(t, ok.Sent(), 1, "later transports still receive the reading")
}

func TestNewReadingOutOfRange(t *testing.T) {
	// 7 Hz rounds below MIDI 0.
	r := NewReading(pitch.Detected(7), time.Time{})
	assert.False(t, r.Detected)

	r = NewReading(pitch.NotDetected, time.Time{})
	assert.False(t, r.Detected)
}

func TestRun(t *testing.T) {
	mock := &utils.MockTransport{}
	tn := newTuner(t, mock)

	src := audio.NewSliceSource([]pitch.Frame{sine(220), {Samples: []float32{1}}, sine(440)})
	require.NoError(t, tn.Run(context.Background(), src))

	assert.Equal(t, Stats{Frames: 3, Detected: 2, Errors: 1}, tn.Stats())
	require.Len(t, mock.Sent(), 2)
	assert.Equal(t, "A4", tn.Latest().Label.Name())
}

type blockingSource struct{ ch chan pitch.Frame }

func (b blockingSource) Frames() <-chan pitch.Frame { return b.ch }

func TestRunCancel(t *testing.T) {
	tn := newTuner(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- tn.Run(ctx, blockingSource{make(chan pitch.Frame)}) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLatestConcurrent(t *testing.T) {
	tn := newTuner(t)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, hz := range []float64{220, 330, 440, 550} {
			_, _ = tn.Process(sine(hz))
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			r := tn.Latest()
			if r.Detected && !(r.Frequency > 0) {
				t.Errorf("torn reading %+v", r)
			}
		}
	}()
	wg.Wait()
}

func TestClose(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	tn := newTuner(t, a, b)
	require.NoError(t, tn.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestReadingJSON(t *testing.T) {
	r := Reading{
		Time:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Detected:  true,
		Frequency: 261.63,
		Label:     note.Label{Class: note.C, Octave: 4, Cents: 0, MIDI: 60},
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2025-01-02T03:04:05Z","detected":true,"frequency":261.63,"note":"C","octave":4,"cents":0,"midi":60}`, string(b))

	var back Reading
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r.Label, back.Label)
	assert.True(t, math.Abs(back.Frequency-r.Frequency) < 1e-9)

	b, err = json.Marshal(Reading{Time: r.Time})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2025-01-02T03:04:05Z","detected":false}`, string(b))
}

func TestReadingJSONInvalid(t *testing.T) {
	var r Reading
	assert.Error(t, json.Unmarshal([]byte(`{"detected":true,"note":"C"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"detected":true,"note":"H","octave":1,"cents":0,"midi":1}`), &r))
}
