package main

import (
	"fmt"

	"github.com/joncooperworks/supercalc/config"
	"github.com/joncooperworks/supercalc/executor"
	"github.com/joncooperworks/supercalc/plugin"
	"github.com/joncooperworks/supercalc/registry"
	"github.com/spf13/cobra"
)

// app is the state shared by the subcommands, built once per invocation.
type app struct {
	host  *executor.Host
	chain *plugin.Chain
}

type rootFlags struct {
	logLevel  string
	logFormat string
	// dir is only settable from tests.
	dir string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootFlags{})
}

func newRootCmdWith(flags *rootFlags) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "supercalc",
		Short:        "Calculator with plugin operations",
		Long:         `A calculator whose operations beyond addition and subtraction are loaded from plugin modules in the directory of the executable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format: text, json (overrides config)")

	root.AddCommand(
		newListCmd(a),
		newCalcCmd(a),
		newReplCmd(a),
		newCheckCmd(a),
	)
	return root
}

// init loads the config next to the executable and builds the host.
func (a *app) init(cmd *cobra.Command, flags *rootFlags) error {
	exeDir, err := executor.ExecutableDir()
	if err != nil {
		return err
	}
	dir := exeDir
	if flags.dir != "" {
		dir = flags.dir
	}

	cfg, err := config.Load(config.DefaultPath(dir))
	if err != nil {
		return err
	}

	level := cfg.LogLevel()
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	format := cfg.LogFormat()
	if flags.logFormat != "" {
		format = flags.logFormat
	}
	logger := newLogger(level, format, cmd.ErrOrStderr())

	chain, err := plugin.NewChain(plugin.ChainOptions{
		Kinds:  cfg.Loaders,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create loader chain: %w", err)
	}

	reg := registry.New(registry.Options{
		Loader: chain,
		Sort:   cfg.SortDiscovery(),
		Logger: logger,
	})
	host, err := executor.NewHost(executor.HostOptions{
		Registry: reg,
		Dir:      dir,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	a.host = host
	a.chain = chain
	return nil
}
