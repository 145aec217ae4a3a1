// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pocket/internal/config"
	"pocket/internal/log"
	"pocket/pkg/build"

	"github.com/spf13/cobra"
)

// app carries state shared by every command.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// loadConfig reads the configuration once and applies the log level.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Debug = true
	}
	log.SetLevel(cfg.Level())
	a.cfg = cfg
	return nil
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the live tuner.
func NewRootCmd() *cobra.Command {
	a := &app{}
	buildInfo := build.GetBuildFlags()

	listenCmd := newListenCmd(a)
	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: listenCmd.RunE,
	}
	// The root command runs listen, so it takes listen's flags too.
	rootCmd.Flags().AddFlagSet(listenCmd.Flags())

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to a YAML config file (default ./"+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		listenCmd,
		newAnalyzeCmd(a),
		newNoteCmd(),
		newFreqCmd(),
		newMIDICmd(a),
		newInspectCmd(),
		newTapCmd(a),
		newDevicesCmd(),
		newServeCmd(a),
		newTranscribeCmd(a),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args until an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
