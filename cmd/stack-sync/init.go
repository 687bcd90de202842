package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/reporter"
)

var (
	initMode       string
	initAPIKey     string
	initHost       string
	initEndpointID uint64
	initSSHUser    string
	initSSHKey     string
	initHostDir    string
	initParentDir  string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a parent config with credentials and a local stack config",
	Long: `Init writes two config files: one in the parent directory (default: the
home directory) holding the target and its credentials, and a local one in
the -C directory where stacks are declared. Every directory below the parent
can then declare its own stacks and inherit the credentials.

Examples:
  stack-sync init --host https://portainer.example.com --portainer-api-key ptr_xxx
  stack-sync init --mode ssh --host docker1 --host-dir /srv/stacks --ssh-user deploy`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", string(config.ModePortainer), "Backend: portainer or ssh")
	initCmd.Flags().StringVar(&initAPIKey, "portainer-api-key", "", "Portainer API key (default $PORTAINER_API_KEY)")
	initCmd.Flags().StringVar(&initHost, "host", "", "Portainer URL or SSH host")
	initCmd.Flags().Uint64Var(&initEndpointID, "endpoint-id", 0, "Portainer environment ID (default 2)")
	initCmd.Flags().StringVar(&initSSHUser, "ssh-user", "", "SSH user")
	initCmd.Flags().StringVar(&initSSHKey, "ssh-key", "", "SSH identity file")
	initCmd.Flags().StringVar(&initHostDir, "host-dir", "", "Directory holding the stacks on the SSH host")
	initCmd.Flags().StringVar(&initParentDir, "parent-dir", "", "Directory of the parent config (default $HOME)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	_ = initCmd.MarkFlagRequired("host")
}

func runInit(cmd *cobra.Command, args []string) error {
	global, err := initGlobal()
	if err != nil {
		return err
	}

	parentDir := initParentDir
	if parentDir == "" {
		if parentDir, err = homedir.Dir(); err != nil {
			return fmt.Errorf("could not determine parent directory, set --parent-dir: %w", err)
		}
	}
	localDir := configPath
	if info, err := os.Stat(localDir); err == nil && !info.IsDir() {
		localDir = filepath.Dir(localDir)
	}

	if err := checkDirsDiffer(parentDir, localDir); err != nil {
		return err
	}
	parentPath := filepath.Join(parentDir, config.DotFileName)
	localPath := filepath.Join(localDir, config.DotFileName)
	if !initForce {
		for _, p := range []string{parentPath, localPath} {
			if _, err := os.Stat(p); err == nil {
				return errdefs.Configf(p, "config already exists; use --force to overwrite")
			}
		}
	}

	r := reporter.New(cmd.OutOrStdout())
	if err := config.WriteParent(parentPath, global); err != nil {
		return err
	}
	r.Info("Created parent config at %s", parentPath)
	if err := config.WriteLocalTemplate(localPath); err != nil {
		return err
	}
	r.Info("Created local config at %s", localPath)
	return nil
}

// initGlobal builds the parent config from the init flags.
func initGlobal() (config.GlobalConfig, error) {
	switch config.Mode(initMode) {
	case config.ModePortainer:
		apiKey := initAPIKey
		if apiKey == "" {
			env, err := config.LoadEnvironment()
			if err != nil {
				return nil, err
			}
			apiKey = env.APIKey
		}
		if apiKey == "" {
			return nil, &errdefs.ConfigError{Key: "portainer_api_key", Msg: "--portainer-api-key is required for portainer mode"}
		}
		return config.Portainer{APIKey: apiKey, Host: initHost, EndpointID: initEndpointID}, nil
	case config.ModeSSH:
		if initHostDir == "" {
			return nil, &errdefs.ConfigError{Key: "host_dir", Msg: "--host-dir is required for ssh mode"}
		}
		return config.SSH{Host: initHost, User: initSSHUser, Key: initSSHKey, HostDir: initHostDir}, nil
	}
	return nil, &errdefs.ConfigError{Key: "mode", Msg: fmt.Sprintf("unknown mode %q, use portainer or ssh", initMode)}
}

// checkDirsDiffer refuses to write both configs into the same directory.
// Symlinks are resolved so that two paths to one directory compare equal.
func checkDirsDiffer(parentDir, localDir string) error {
	if canonicalDir(parentDir) == canonicalDir(localDir) {
		return fmt.Errorf("parent directory and local directory are the same (%s); use --parent-dir to choose another parent", canonicalDir(localDir))
	}
	return nil
}

func canonicalDir(dir string) string {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// The directory may not exist yet. Abs does not require it.
		resolved, err = filepath.Abs(dir)
		if err != nil {
			return dir
		}
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		return abs
	}
	return resolved
}
