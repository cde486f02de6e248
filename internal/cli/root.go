// Package cli holds the cdviz-collector command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cdviz-collector/internal/config"
	"cdviz-collector/internal/engine"
	"cdviz-collector/internal/logging"
)

// EnvConfig is read when --config is not given.
const EnvConfig = "CDVIZ_COLLECTOR_CONFIG"

type globalOptions struct {
	configPath string
	directory  string
	verbose    int
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	opts := logging.OptionsFromEnv(o.verbose)
	opts.Out = w
	return logging.New(opts)
}

// workDir returns the absolute -C directory, or "" when not set.
func (o *globalOptions) workDir() (string, error) {
	if o.directory == "" {
		return "", nil
	}
	dir, err := filepath.Abs(o.directory)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("directory: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("directory: %s is not a directory", dir)
	}
	return dir, nil
}

func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "cdviz-collector",
		Short: "Collect CDEvents from sources and dispatch them to sinks",
		Long: `cdviz-collector reads its configuration from the embedded baseline, an
optional file and CDVIZ_COLLECTOR__* environment variables, then runs every
enabled source and sink until interrupted or until one of them fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollector(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	// Global flags
	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", os.Getenv(EnvConfig), "configuration file, TOML or YAML (env "+EnvConfig+")")
	f.StringVarP(&opts.directory, "directory", "C", "", "directory relative paths in adapter settings are resolved against")
	f.CountVarP(&opts.verbose, "verbose", "v", "increase logging verbosity (-v, -vv, -vvv)")

	cmd.AddCommand(newConfigCommand(opts), newHealthCommand(opts))
	return cmd
}

// Execute runs the command tree with ctx, which is cancelled on shutdown
// signals by the caller.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func runCollector(ctx context.Context, opts *globalOptions, stderr io.Writer) error {
	log := opts.logger(stderr)

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		log.Error("cannot load configuration", "err", err)
		return err
	}
	workDir, err := opts.workDir()
	if err != nil {
		return err
	}

	e, err := engine.Bootstrap(engine.Options{Config: cfg, Logger: log, WorkDir: workDir})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return e.Run(ctx)
}
