package main

import (
	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/engine"
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/stacks"
)

var validateCmd = &cobra.Command{
	Use:   "validate [stacks...]",
	Short: "Check the config and load every compose file locally",
	Long: `Validate resolves the config chain and loads the compose file of every
selected, enabled stack with its env file, the same way docker compose
would. Nothing is sent to the remote target.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	res, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	list, err := stacks.Resolve(res, args)
	if err != nil {
		return err
	}
	r := reporter.New(cmd.OutOrStdout())
	if err := engine.Validate(cmd.Context(), list, r.Info); err != nil {
		return err
	}
	r.Info("Config %s is valid", res.LocalPath)
	return nil
}
