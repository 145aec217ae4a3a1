// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"pocket/internal/audio"
	"pocket/internal/pitch"
	"pocket/internal/transport"
	"pocket/internal/tuner"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Estimate the pitch of every frame of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			est, err := pitch.NewEstimator(a.cfg.Estimator())
			if err != nil {
				return err
			}
			return analyze(cmd.Context(), cmd.OutOrStdout(), f, est, a.cfg.Audio.FrameSize, a.cfg.Audio.HopSize, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON reading per line")
	return cmd
}

type frameReading struct {
	OffsetMs int64         `json:"offset_ms"`
	Reading  tuner.Reading `json:"reading"`
}

// readingPrinter is the transport analyze feeds the tuner's readings into.
// Readings arrive in frame order, so the count gives each frame's offset.
type readingPrinter struct {
	w          io.Writer
	enc        *json.Encoder
	hopSize    int
	sampleRate int
	n          int
	err        error
}

func (p *readingPrinter) Send(data any) error {
	reading, ok := data.(tuner.Reading)
	if !ok {
		return fmt.Errorf("unexpected %T", data)
	}
	offset := time.Duration(p.n) * time.Duration(p.hopSize) * time.Second / time.Duration(p.sampleRate)
	p.n++

	var err error
	if p.enc != nil {
		err = p.enc.Encode(frameReading{OffsetMs: offset.Milliseconds(), Reading: reading})
	} else {
		_, err = fmt.Fprintf(p.w, "%9s  %s\n", offset.Round(time.Millisecond), reading)
	}
	if err != nil && p.err == nil {
		p.err = err
	}
	return err
}

func (p *readingPrinter) Close() error { return nil }

var _ transport.Transport = (*readingPrinter)(nil)

// analyze prints one reading per frame with its offset from the start of
// the file.
func analyze(ctx context.Context, w io.Writer, r io.ReadSeeker, est *pitch.Estimator, frameSize, hopSize int, asJSON bool) error {
	frames, err := audio.ReadWAVFrames(r, frameSize, hopSize)
	if err != nil {
		return err
	}

	p := &readingPrinter{w: w, hopSize: hopSize}
	if len(frames) > 0 {
		p.sampleRate = frames[0].SampleRate
	}
	if asJSON {
		p.enc = json.NewEncoder(w)
	}

	t := tuner.New(est, p)
	if err := t.Run(ctx, audio.NewSliceSource(frames)); err != nil {
		return err
	}
	if p.err != nil {
		return p.err
	}

	stats := t.Stats()
	if stats.Errors > 0 {
		return fmt.Errorf("%d of %d frames could not be analysed", stats.Errors, stats.Frames)
	}
	if !asJSON {
		fmt.Fprintf(w, "\n%d frames, %d with a pitch\n", stats.Frames, stats.Detected)
	}
	return nil
}
