// Package cli defines the chemroute command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemRoute-Intelligence/internal/config"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	ConfigPath string
	Debug      bool
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chemroute",
		Short: "Extract synthesis routes from chemistry literature PDFs",
		Long: "chemroute mines chemistry papers for their experimental sections and\n" +
			"compound identifiers, recognizes reaction diagrams through an external\n" +
			"model service, and assembles the findings into per-paper route reports.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML or JSON)")
	pf.BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newExtractCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// loadConfig resolves the effective configuration: file or environment,
// then the debug flag on top.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from the resolved config.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	return logging.NewLogger(cfg.Log)
}

// Execute runs the CLI and returns the first error encountered.
func Execute() error {
	return NewRootCommand().Execute()
}
