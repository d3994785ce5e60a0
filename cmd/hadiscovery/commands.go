package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/logging"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// load reads the configuration and applies the --log-level override.
func (o *rootOptions) load() (*config.Config, error) {
	if o.logLevel != "" && !logging.ValidLevel(o.logLevel) {
		return nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hadiscovery",
		Short: "Publish Home Assistant MQTT discovery for configured devices",
		Long: `hadiscovery announces devices and their entities to Home Assistant
through MQTT discovery, keeps them available through a last-will backed
availability topic, and publishes the output of command probes as entity
state.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", configPathFromEnv(), "config file (env "+configEnv+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newDiscoveryCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var blocking bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect, publish discovery and run probes until signalled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, blocking)
		},
	}
	cmd.Flags().BoolVar(&blocking, "blocking", false, "run the discovery runtime on the command's goroutine")
	return cmd
}

func newDiscoveryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discovery",
		Short: "Print the discovery documents without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			// Keep stdout for the documents.
			logCfg := cfg.Logging
			logCfg.Output = "stderr"
			log := logging.New(logCfg, version)

			text, err := discoveryText(cfg, log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hadiscovery %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
