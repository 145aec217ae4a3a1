// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pocket/internal/audio"
	"pocket/internal/log"
	"pocket/internal/pitch"
	"pocket/internal/server"
	"pocket/internal/transport"
	"pocket/internal/transport/udp"
	"pocket/internal/tui"
	"pocket/internal/tuner"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type listenOptions struct {
	plain  bool
	record string
	serve  bool
}

func newListenCmd(a *app) *cobra.Command {
	var opts listenOptions

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Show the note you are playing, live from the input device",
		Long: `Show the note you are playing, live from the input device.

The tuner view also works as a tap pad: press space on the beat to measure
a tempo. With --plain, readings are logged instead of drawn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listen(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.plain, "plain", "p", false, "Log readings instead of starting the tuner view")
	cmd.Flags().StringVarP(&opts.record, "record", "r", "",
		"Also record the input to this WAV file (\"auto\" names it recording-DD-MM-YYYY-HHMMSS.wav)")
	cmd.Flags().BoolVarP(&opts.serve, "serve", "s", false, "Serve the HTTP API and /ws readings while listening")
	return cmd
}

func listen(ctx context.Context, a *app, opts listenOptions) error {
	cfg := a.cfg

	est, err := pitch.NewEstimator(cfg.Estimator())
	if err != nil {
		return err
	}

	// The tuner view owns the terminal, so logs go to a file.
	if !opts.plain {
		f, err := tea.LogToFile(filepath.Join(os.TempDir(), "pocket.log"), "")
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
		defer log.SetOutput(os.Stderr)
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	capture, err := audio.NewCapture(cfg.Audio)
	if err != nil {
		return err
	}
	defer capture.Close()

	var transports []transport.Transport
	if opts.plain {
		transports = append(transports, transport.NewLoggingTransport())
	}
	var ws *transport.WebSocketTransport
	if opts.serve && cfg.Transport.WebSocketEnabled {
		ws = transport.NewWebSocketTransport(cfg.Server.AllowedOrigins)
		transports = append(transports, ws)
	}

	t := tuner.New(est, transports...)
	defer t.Close()
	defer func() { printListenSummary(os.Stderr, t.Stats(), capture.Dropped()) }()

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, t)
		if err != nil {
			sender.Close()
			return err
		}
		pub.Start()
		defer pub.Close()
	}

	if opts.record != "" {
		path := opts.record
		if path == "auto" {
			path = "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
		}
		w, err := audio.CreateWAV(path, int(cfg.Audio.SampleRate))
		if err != nil {
			return err
		}
		capture.Record(w)
		defer func() {
			capture.Record(nil)
			if err := w.Close(); err != nil {
				log.Errorf("Capture: Error saving recording: %v", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Recording saved to: %s (%s)\n", path, recordedLength(w.Samples(), cfg.Audio.SampleRate))
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	if opts.serve {
		srvOpts := a.serverOptions(est)
		srvOpts.Readings = t
		if ws != nil {
			srvOpts.WebSocket = ws.Handler()
		}
		go func() { errCh <- server.New(srvOpts).ListenAndServe(ctx, cfg.Server.Addr) }()
	}

	if err := capture.Start(); err != nil {
		return err
	}
	go func() { errCh <- t.Run(ctx, capture) }()

	if opts.plain {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}
		return nil
	}

	model := tui.NewTunerModel(t, cfg.Tempo.Staleness).
		WithStatus(fmt.Sprintf("Input: %s at %.0f Hz", capture.Device().Name, cfg.Audio.SampleRate))
	return tui.StartTunerUI(model)
}

// printListenSummary reports how much audio was analysed and how many
// frames the capture had to drop.
func printListenSummary(w io.Writer, stats tuner.Stats, dropped uint64) {
	fmt.Fprintf(w, "%d frames analysed, %d with a pitch, %d dropped\n", stats.Frames, stats.Detected, dropped)
}

func recordedLength(samples int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	d := time.Duration(float64(samples) / sampleRate * float64(time.Second))
	return d.Round(time.Millisecond)
}
