package main

import (
	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/engine"
)

var (
	syncDryRun   bool
	syncValidate bool
	syncFailFast bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [stacks...]",
	Short: "Create, update, start or stop stacks to match the config",
	Long: `Reconcile every selected stack with the remote target.

For each stack the remote state is fetched once and a single action is taken:
  missing            create it
  compose/env differ update it
  stopped, in sync   start it
  disabled, running  stop it

Stacks are handled in name order. A failing stack does not stop the others
unless --fail-fast is given; all failures are reported at the end.

Examples:
  stack-sync sync                 Sync every stack in the nearest config
  stack-sync sync web api         Sync two stacks
  stack-sync sync --dry-run -v    Show what would change, with a diff`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Preview what would happen without making changes")
	syncCmd.Flags().BoolVar(&syncValidate, "validate", false, "Load every compose file locally before syncing")
	syncCmd.Flags().BoolVar(&syncFailFast, "fail-fast", false, "Stop at the first failing stack")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd, args)
	if err != nil {
		return err
	}
	if syncValidate {
		if err := engine.Validate(cmd.Context(), a.stacks, nil); err != nil {
			return err
		}
	}
	opts := a.options()
	opts.DryRun = syncDryRun
	return a.engine.SyncAll(cmd.Context(), a.stacks, engine.SyncAllOptions{Options: opts, FailFast: syncFailFast})
}
