// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"

	"pocket/internal/log"
	"pocket/internal/transcribe"

	"github.com/spf13/cobra"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a recording with the configured service and save it as MIDI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.transcriber()
			if client == nil {
				return errors.New("no transcription service configured: set transcribe.endpoint or ENV_TRANSCRIBE_ENDPOINT")
			}

			clip, err := transcribe.ReadClip(args[0])
			if err != nil {
				return err
			}

			f, seq, err := transcribe.Export(cmd.Context(), client, clip, a.cfg.MIDI.DefaultBPM)
			if err != nil {
				return err
			}

			if output == "" {
				output = replaceExt(args[0], ".mid")
			}
			if err := writeFile(cmd, output, f); err != nil {
				return err
			}
			log.Infof("Transcriber: Wrote %d notes at %.0f BPM to %s", len(seq.Notes), seq.Tempo(a.cfg.MIDI.DefaultBPM), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default <input>.mid)")
	return cmd
}
