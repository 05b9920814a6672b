// Package cmd wires the trapwatch command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/trapwatch/cmd/evaluate"
	"github.com/tphakala/trapwatch/cmd/serve"
	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/logger"
)

// RootCommand creates and returns the root command. Settings are loaded
// before any subcommand runs and shared with it through the settings pointer.
func RootCommand(version string) *cobra.Command {
	var (
		configFile string
		debug      bool
	)
	settings := &conf.Settings{}
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "trapwatch",
		Short:         "Camera trap detection decision service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: search the default config paths)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		if debug {
			loaded.Debug = true
		}
		*settings = *loaded

		central, err = logger.NewCentralLogger(settings.LoggerConfig())
		if err != nil {
			return err
		}
		logger.SetGlobal(central)
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central == nil {
			return nil
		}
		return central.Close()
	}

	rootCmd.AddCommand(
		serve.Command(settings, version),
		evaluate.Command(settings),
	)
	return rootCmd
}
