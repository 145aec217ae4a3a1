// SPDX-License-Identifier: MIT
/*
Package tuner wires the pitch estimator to the note mapper and publishes
each result to the configured transports.

A Tuner keeps only the latest Reading. Process may be called from one
goroutine while any number of others call Latest.
*/
package tuner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pocket/internal/audio"
	"pocket/internal/log"
	"pocket/internal/pitch"
	"pocket/internal/transport"
)

// Stats counts processed frames.
type Stats struct {
	Frames   uint64
	Detected uint64
	Errors   uint64
}

// Tuner turns frames into Readings.
type Tuner struct {
	est        *pitch.Estimator
	transports []transport.Transport
	now        func() time.Time

	mu     sync.RWMutex
	latest Reading

	frames   atomic.Uint64
	detected atomic.Uint64
	errors   atomic.Uint64
}

// New returns a Tuner publishing to transports.
func New(est *pitch.Estimator, transports ...transport.Transport) *Tuner {
	return &Tuner{est: est, transports: transports, now: time.Now}
}

// Process estimates the pitch of f, stores the Reading as the latest one and
// sends it to every transport. Transport failures are logged and do not fail
// the call; only a malformed frame returns an error.
func (t *Tuner) Process(f pitch.Frame) (Reading, error) {
	t.frames.Add(1)

	est, err := t.est.Estimate(f)
	if err != nil {
		t.errors.Add(1)
		return Reading{}, err
	}

	r := NewReading(est, t.now())
	if r.Detected {
		t.detected.Add(1)
	}

	t.mu.Lock()
	t.latest = r
	t.mu.Unlock()

	for _, tr := range t.transports {
		if err := tr.Send(r); err != nil {
			log.Warnf("Tuner: Transport %T failed: %v", tr, err)
		}
	}
	return r, nil
}

// Latest returns the most recent Reading.
func (t *Tuner) Latest() Reading {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Stats returns frame counters.
func (t *Tuner) Stats() Stats {
	return Stats{
		Frames:   t.frames.Load(),
		Detected: t.detected.Load(),
		Errors:   t.errors.Load(),
	}
}

// Run processes frames from src until it is exhausted or ctx is done. Bad
// frames are logged and skipped.
func (t *Tuner) Run(ctx context.Context, src audio.FrameSource) error {
	frames := src.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				log.Debugf("Tuner: Source exhausted after %d frames", t.frames.Load())
				return nil
			}
			if _, err := t.Process(f); err != nil {
				log.Warnf("Tuner: Skipping frame: %v", err)
			}
		}
	}
}

// Close closes every transport and returns the first error.
func (t *Tuner) Close() error {
	var first error
	for _, tr := range t.transports {
		if err := tr.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
