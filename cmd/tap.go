// SPDX-License-Identifier: MIT
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"pocket/internal/tempo"

	"github.com/spf13/cobra"
)

func newTapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tap",
		Short: "Tap Enter on the beat to measure a tempo",
		Long: `Tap Enter on the beat to measure a tempo.

Taps older than the configured staleness window are forgotten, so the tempo
follows your most recent tapping. Type r and Enter to start over, q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := tempo.NewTracker(a.cfg.Tempo.Staleness)
			fmt.Fprintf(cmd.ErrOrStderr(), "Tap Enter on the beat, taps older than %s are forgotten (r resets, q quits)\n",
				tracker.Staleness())
			return tapLoop(cmd.InOrStdin(), cmd.OutOrStdout(), tracker, time.Now)
		},
	}
}

// tapLoop records a tap for each input line until EOF or "q".
func tapLoop(r io.Reader, w io.Writer, tracker *tempo.Tracker, now func() time.Time) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "q":
			return nil
		case "r":
			tracker.Reset()
			fmt.Fprintln(w, "reset")
		default:
			fmt.Fprintln(w, tracker.Tap(now()))
		}
	}
	return scanner.Err()
}
