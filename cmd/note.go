// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strconv"

	"pocket/internal/note"

	"github.com/spf13/cobra"
)

func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "note <frequency>...",
		Short:   "Name the nearest note to each frequency in Hz",
		Example: "  pocket note 440 261.63 445",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				freq, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid frequency %q: %w", arg, err)
				}
				label, err := note.FrequencyToNote(freq)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%.2f Hz\t%s\tMIDI %d\n", freq, label, label.MIDI)
			}
			return nil
		},
	}
}

func newFreqCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "freq <note>...",
		Short:   "Print the equal-tempered frequency of each note (A4 = 440 Hz)",
		Example: "  pocket freq A4 C#4 Bb2",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				class, octave, err := note.ParseName(arg)
				if err != nil {
					return err
				}
				freq, err := note.NoteToFrequency(class, octave)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%d\t%.3f Hz\n", class, octave, freq)
			}
			return nil
		},
	}
}
