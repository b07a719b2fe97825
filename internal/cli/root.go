// Package cli wires the docvault commands.
package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
}

// NewRootCommand creates the root command. Without a subcommand it serves HTTP.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "docvault",
		Short:         "Document vault backend",
		Long:          "Document catalog, metadata store and workflow engine behind the vault HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWorkflowsCommand(opts))

	return cmd
}

// newLogger builds the process logger from config, letting --log-level win.
func newLogger(w io.Writer, cfg *config.AppConfig, opts *RootOptions) *logrus.Logger {
	log := logging.New(w, cfg.TimeLocation())
	logging.ParseLevel(log, cfg.LogLevel)
	if opts.LogLevel != "" {
		logging.ParseLevel(log, opts.LogLevel)
	}
	return log
}
