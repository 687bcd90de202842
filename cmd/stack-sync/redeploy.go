package main

import (
	"github.com/spf13/cobra"
)

var redeployDryRun bool

var redeployCmd = &cobra.Command{
	Use:   "redeploy <stack>",
	Short: "Pull images and recreate the containers of a stack",
	Long: `Redeploy sends the stack's current remote compose file and env back to
the target with a forced image pull and container recreation. Local files
are not read, so pending local changes are not deployed; use sync for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runRedeploy,
}

func init() {
	redeployCmd.Flags().BoolVar(&redeployDryRun, "dry-run", false, "Preview what would happen without making changes")
}

func runRedeploy(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd, args)
	if err != nil {
		return err
	}
	opts := a.options()
	opts.DryRun = redeployDryRun
	return a.engine.Redeploy(cmd.Context(), a.stacks[0], opts)
}
