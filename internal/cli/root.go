// Package cli defines the meetingrec command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meetingrec/internal/app"
	"meetingrec/internal/config"
	"meetingrec/internal/logging"
)

// Dependencies are resolved once flags are parsed.
type Dependencies struct {
	ConfigFile string
	Config     config.Config
	Log        zerolog.Logger

	logFile io.Closer

	// NewApp builds the application; replaced in tests.
	NewApp func(config.Config, zerolog.Logger) (*app.App, error)
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.NewApp == nil {
		deps.NewApp = app.New
	}

	rootCmd := &cobra.Command{
		Use:           "meetingrec",
		Short:         "Record meetings, transcribe locally and get an AI analysis",
		Long:          "meetingrec serves a dashboard that records a meeting from the default microphone, transcribes it with whisper.cpp and asks a chat model for a summary, decisions, action items and a flow diagram.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(deps.ConfigFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			deps.Config = cfg
			log, closer, err := logging.NewWithFile(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
			if err != nil {
				return err
			}
			deps.Log, deps.logFile = log, closer
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), deps)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&deps.ConfigFile, "config", "c", "", "path to a config file (default ./config.yml if present)")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewRecordingsCmd(deps))
	rootCmd.AddCommand(NewAnalyzeCmd(deps))

	return rootCmd
}

func Execute(ctx context.Context) error {
	deps := &Dependencies{}
	defer deps.closeLog()
	return NewRootCmd(deps).ExecuteContext(ctx)
}

func (d *Dependencies) closeLog() {
	if d.logFile != nil {
		_ = d.logFile.Close()
	}
}
