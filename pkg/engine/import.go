package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/stacks"
)

// ImportOptions select the stack to import and the manifest to add it to.
type ImportOptions struct {
	// ConfigPath is the local manifest the stack is declared in.
	ConfigPath string
	Name       string
	// Force overwrites existing files and replaces an existing declaration.
	Force bool
}

// Import copies a remote stack next to the manifest as <name>.compose.yaml
// and, when it has env, <name>.env, then declares it in the manifest.
func (e *Engine) Import(ctx context.Context, opts ImportOptions) error {
	name := opts.Name
	if err := stacks.ValidateName(name); err != nil {
		return &errdefs.ConfigError{Path: opts.ConfigPath, Msg: err.Error()}
	}

	declared, err := config.StackDeclared(opts.ConfigPath, name)
	if err != nil {
		return err
	}
	if declared && !opts.Force {
		return errdefs.Configf(opts.ConfigPath, "stack %s is already declared; use --force to overwrite", name)
	}

	remote, err := e.backend.FetchState(ctx, name)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(opts.ConfigPath)
	composeFile := name + ".compose.yaml"
	envFile := name + ".env"
	composePath := filepath.Join(baseDir, composeFile)
	envPath := filepath.Join(baseDir, envFile)
	hasEnv := len(remote.Env) > 0

	if !opts.Force {
		if exists(composePath) {
			return errdefs.Configf(composePath, "compose file already exists; use --force to overwrite")
		}
		if hasEnv && exists(envPath) {
			return errdefs.Configf(envPath, "env file already exists; use --force to overwrite")
		}
	}

	if err := os.WriteFile(composePath, []byte(remote.ComposeContent), 0644); err != nil {
		return &errdefs.IOError{Op: "write", Path: composePath, Err: err}
	}
	e.reporter.Info("Wrote compose file to %s", composePath)

	var envRef *string
	if hasEnv {
		if err := envfile.WriteFile(envPath, remote.Env); err != nil {
			return err
		}
		e.reporter.Info("Wrote env file to %s", envPath)
		envRef = &envFile
	}

	if err := config.SetStack(opts.ConfigPath, name, composeFile, envRef); err != nil {
		return err
	}
	e.reporter.Info("Added stack %s to %s", name, opts.ConfigPath)
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
