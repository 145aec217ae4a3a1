// SPDX-License-Identifier: MIT
package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"pocket/internal/log"
	"pocket/internal/midi"

	"github.com/spf13/cobra"
)

func newMIDICmd(a *app) *cobra.Command {
	var (
		output string
		bpm    float64
	)

	cmd := &cobra.Command{
		Use:   "midi <notes.json|->",
		Short: "Encode a JSON note list as a Standard MIDI File",
		Long: `Encode a JSON note list as a format 0 Standard MIDI File.

The input looks like
  {"bpm": 96, "notes": [{"pitch": 60, "velocity": 100, "start": 0, "duration": 0.5}]}
Start and duration are in seconds. Without a bpm the configured default is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			seq, err := midi.DecodeSequence(in)
			if err != nil {
				return err
			}
			fallback := a.cfg.MIDI.DefaultBPM
			if cmd.Flags().Changed("bpm") {
				seq.BPM = &bpm
			}

			f, err := seq.Encode(fallback)
			if err != nil {
				return err
			}
			if output == "" {
				output = replaceExt(args[0], ".mid")
			}
			if err := writeFile(cmd, output, f); err != nil {
				return err
			}
			log.Infof("MIDI: Wrote %d notes at %.0f BPM to %s", len(seq.Notes), seq.Tempo(fallback), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default <input>.mid)")
	cmd.Flags().Float64Var(&bpm, "bpm", 0, "Override the tempo of the note list")
	return cmd
}

// openInput opens path, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// writeFile writes f to path, or to stdout for "-".
func writeFile(cmd *cobra.Command, path string, f io.WriterTo) error {
	if path == "-" {
		_, err := f.WriteTo(cmd.OutOrStdout())
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func replaceExt(path, ext string) string {
	if path == "-" {
		return "-"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
