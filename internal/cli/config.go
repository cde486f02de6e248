package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/config"
	"cdviz-collector/sink"
	"cdviz-collector/source"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}
	cmd.AddCommand(newCheckCommand(opts), newDumpCommand(opts))
	return cmd
}

func newCheckCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every source and sink, enabled or not",
		Long: `Resolve the configuration and build every source and sink from its settings
without opening any connection. Exits non-zero if any entry is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(opts.configPath)
			if err != nil {
				return err
			}
			workDir, err := opts.workDir()
			if err != nil {
				return err
			}
			return checkConfig(cmd.OutOrStdout(), cfg, adapter.Env{
				Logger:  opts.logger(cmd.ErrOrStderr()),
				WorkDir: workDir,
			})
		},
	}
}

func checkConfig(w io.Writer, cfg config.Config, env adapter.Env) error {
	var errs []error
	report := func(kind, name, typ string, enabled bool, err error) {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		if err != nil {
			fmt.Fprintf(w, "%-6s %-24s %-8s %-8s FAIL %v\n", kind, name, typ, state, err)
			errs = append(errs, err)
			return
		}
		fmt.Fprintf(w, "%-6s %-24s %-8s %-8s ok\n", kind, name, typ, state)
	}

	for _, name := range sortedNames(cfg.Sources) {
		c := cfg.Sources[name]
		env.Name = name
		a, err := source.NewAdapter(env, c)
		if err == nil {
			err = a.Close()
		}
		report("source", name, c.Type, c.IsEnabled(), err)
	}
	for _, name := range sortedNames(cfg.Sinks) {
		c := cfg.Sinks[name]
		env.Name = name
		a, err := sink.NewAdapter(env, c)
		if err == nil {
			err = a.Close()
		}
		report("sink", name, c.Type, c.IsEnabled(), err)
	}
	fmt.Fprintf(w, "\nsource types: %s\n", strings.Join(source.Kinds(), ", "))
	fmt.Fprintf(w, "sink types:   %s\n", strings.Join(sink.Kinds(), ", "))
	return errors.Join(errs...)
}

func newDumpCommand(opts *globalOptions) *cobra.Command {
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(opts.configPath)
			if err != nil {
				return err
			}
			if enabledOnly {
				cfg.Sources = cfg.EnabledSources()
				cfg.Sinks = cfg.EnabledSinks()
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled-only", false, "only print enabled sources and sinks")
	return cmd
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
