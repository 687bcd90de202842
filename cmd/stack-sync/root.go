package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/logging"
)

var (
	configPath string
	verbose    bool
	logLevel   string
	timeout    time.Duration

	flushLogs = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "stack-sync",
	Short: "Deploy and manage compose stacks on Portainer or over SSH",
	Long: `stack-sync keeps docker compose stacks declared in .stack-sync.toml files
in line with a remote target: a Portainer server or a docker host reached
over SSH.

Config files are looked up from the -C path upwards to the home directory.
The nearest file declares the stacks; credentials may live in any file
above it. PORTAINER_API_KEY overrides portainer_api_key.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { flushLogs() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "C", ".", "Config file or directory to start the lookup from")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show details for every stack")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (env STACK_SYNC_LOG_LEVEL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Timeout of every remote call")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(redeployCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if !cmd.Flags().Changed("log-level") {
		env, err := config.LoadEnvironment()
		if err != nil {
			return err
		}
		level = env.LogLevel
	}
	flush, err := logging.Setup(level)
	if err != nil {
		return err
	}
	flushLogs = flush
	return nil
}
