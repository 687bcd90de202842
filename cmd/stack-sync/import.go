package main

import (
	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/engine"
	"github.com/stack-sync/stack-sync/pkg/reporter"
)

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import <stack>",
	Short: "Copy a remote stack into the local config",
	Long: `Import fetches a stack from the remote target, writes its compose file as
<stack>.compose.yaml and its env as <stack>.env next to the local config,
and declares it there. Existing files and declarations are kept unless
--force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite existing files and declarations")
}

func runImport(cmd *cobra.Command, args []string) error {
	if !config.LocalConfigExists(configPath) {
		return config.ErrNoConfig
	}
	res, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	b, err := newBackend(res.Global, nil)
	if err != nil {
		return err
	}
	e := engine.New(b, reporter.New(cmd.OutOrStdout()))
	return e.Import(cmd.Context(), engine.ImportOptions{
		ConfigPath: res.LocalPath,
		Name:       args[0],
		Force:      importForce,
	})
}
