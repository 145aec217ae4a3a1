// SPDX-License-Identifier: MIT
package cmd

import (
	"pocket/internal/pitch"
	"pocket/internal/server"
	"pocket/internal/transcribe"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the note, pitch, tap tempo and MIDI HTTP API",
		Long: `Serve the note, pitch, tap tempo and MIDI HTTP API on server.addr.

Use "listen --serve" to also expose live readings on /api/reading and /ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := pitch.NewEstimator(a.cfg.Estimator())
			if err != nil {
				return err
			}
			return server.New(a.serverOptions(est)).ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
}

// serverOptions maps the configuration onto server options.
func (a *app) serverOptions(est *pitch.Estimator) server.Options {
	opts := server.Options{
		Estimator:      est,
		DefaultBPM:     a.cfg.MIDI.DefaultBPM,
		Staleness:      a.cfg.Tempo.Staleness,
		MaxSessions:    a.cfg.Server.MaxSessions,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}
	if t := a.transcriber(); t != nil {
		opts.Transcriber = t
	}
	return opts
}

// transcriber returns the configured transcription client, or nil.
func (a *app) transcriber() *transcribe.HTTPClient {
	if a.cfg.Transcribe.Endpoint == "" {
		return nil
	}
	return transcribe.NewHTTPClient(a.cfg.Transcribe.Endpoint, a.cfg.Transcribe.Timeout)
}
