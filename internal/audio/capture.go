// SPDX-License-Identifier: MIT
/*
Package audio supplies mono analysis frames from a live input device or a
WAV file.

Live capture runs inside the PortAudio callback. The callback only
down-mixes, frames and hands frames off without blocking: when the
consumer falls behind, frames are dropped and counted rather than stalling
the audio thread.
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"pocket/internal/config"
	"pocket/internal/log"
	"pocket/internal/pitch"

	"github.com/gordonklaus/portaudio"
)

// FrameSource produces analysis frames until it is exhausted or closed, at
// which point the channel is closed.
type FrameSource interface {
	Frames() <-chan pitch.Frame
}

// frameBacklog is how many frames may wait for the consumer before new
// frames are dropped.
const frameBacklog = 8

// Capture streams frames from a PortAudio input device.
type Capture struct {
	device     *portaudio.DeviceInfo
	sampleRate float64
	channels   int
	latency    time.Duration
	frameSize  int
	hopSize    int

	stream *portaudio.Stream
	framer *Framer
	mono   []float32
	frames chan pitch.Frame

	recMu    sync.Mutex
	recorder *WAVWriter

	dropped   atomic.Uint64
	closeOnce sync.Once
}

var _ FrameSource = (*Capture)(nil)

// NewCapture resolves the configured input device and prepares a capture.
// PortAudio must be initialised.
func NewCapture(cfg config.AudioConfig) (*Capture, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if cfg.InputChannels > device.MaxInputChannels {
		return nil, fmt.Errorf("device %q supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, cfg.InputChannels)
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	return &Capture{
		device:     device,
		sampleRate: cfg.SampleRate,
		channels:   cfg.InputChannels,
		latency:    latency,
		frameSize:  cfg.FrameSize,
		hopSize:    cfg.HopSize,
		framer:     NewFramer(cfg.FrameSize, cfg.HopSize),
		mono:       make([]float32, 0, cfg.HopSize),
		frames:     make(chan pitch.Frame, frameBacklog),
	}, nil
}

// Device returns the input device in use.
func (c *Capture) Device() *portaudio.DeviceInfo {
	return c.device
}

// Frames returns the channel of captured frames.
func (c *Capture) Frames() <-chan pitch.Frame {
	return c.frames
}

// Dropped returns how many frames were discarded because the consumer lagged.
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

// Record tees the mono input into w until Close. Pass nil to stop.
func (c *Capture) Record(w *WAVWriter) {
	c.recMu.Lock()
	c.recorder = w
	c.recMu.Unlock()
}

// Start opens and starts the input stream.
func (c *Capture) Start() error {
	if c.stream != nil {
		return errors.New("capture already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.channels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only.
			Device:   nil,
		},
		FramesPerBuffer: c.hopSize,
		SampleRate:      c.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.stream = stream

	log.Infof("Capture: Listening on %q at %.0f Hz (frame %d, hop %d)",
		c.device.Name, c.sampleRate, c.frameSize, c.hopSize)
	return nil
}

// Close stops the stream and closes the frame channel.
func (c *Capture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stream != nil {
			if stopErr := c.stream.Stop(); stopErr != nil {
				err = stopErr
			}
			if closeErr := c.stream.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			c.stream = nil
		}
		close(c.frames)
		if n := c.dropped.Load(); n > 0 {
			log.Warnf("Capture: Dropped %d frames while the analyser was busy", n)
		}
	})
	return err
}

// process is the PortAudio callback. in is interleaved; only the first
// channel is analysed.
func (c *Capture) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c.mono = c.mono[:0]
	for i := 0; i < len(in); i += c.channels {
		c.mono = append(c.mono, in[i])
	}

	c.recMu.Lock()
	if c.recorder != nil {
		if err := c.recorder.Write(c.mono); err != nil {
			log.Errorf("Capture: Recording failed, stopping: %v", err)
			c.recorder = nil
		}
	}
	c.recMu.Unlock()

	c.framer.Push(c.mono, c.deliver)
}

func (c *Capture) deliver(window []float32) {
	frame := pitch.Frame{Samples: slices.Clone(window), SampleRate: int(c.sampleRate)}
	select {
	case c.frames <- frame:
	default:
		c.dropped.Add(1)
	}
}
