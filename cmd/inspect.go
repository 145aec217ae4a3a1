// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.mid>",
		Short: "List the events of a Standard MIDI File",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return inspect(cmd.OutOrStdout(), f)
		},
	}
}

// inspect prints every event with its absolute tick and time.
func inspect(w io.Writer, r io.Reader) error {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("reading MIDI file: %w", err)
	}

	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		fmt.Fprintf(w, "tracks: %d, resolution: %d ticks per quarter note\n", len(s.Tracks), mt.Resolution())
	} else {
		fmt.Fprintf(w, "tracks: %d, time format: %v\n", len(s.Tracks), s.TimeFormat)
	}

	for i, track := range s.Tracks {
		fmt.Fprintf(w, "\ntrack %d: %d events\n", i, len(track))
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			at := time.Duration(s.TimeAt(abs)) * time.Microsecond
			fmt.Fprintf(w, "%8d  %10s  %s\n", abs, at.Round(time.Millisecond), ev.Message)
		}
	}
	return nil
}
