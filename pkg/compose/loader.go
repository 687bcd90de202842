// Package compose loads compose files with compose-go to validate stacks
// before they are sent to a remote target.
package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Load parses the compose file at path.
func Load(ctx context.Context, path string, projectName string) (*types.Project, error) {
	return LoadWithEnv(ctx, path, "", projectName)
}

// LoadWithEnv parses the compose file at composePath, interpolating variables
// from envPath when it is not empty. The project name defaults to the name
// of the compose file's directory.
func LoadWithEnv(ctx context.Context, composePath, envPath, projectName string) (*types.Project, error) {
	dir := filepath.Dir(composePath)
	if dir == "" {
		dir = "."
	}

	opts := []cli.ProjectOptionsFn{
		cli.WithOsEnv,
		cli.WithWorkingDirectory(dir),
	}
	if envPath != "" {
		opts = append(opts, cli.WithEnvFiles(envPath))
	}
	opts = append(opts, cli.WithDotEnv)

	if projectName != "" {
		opts = append(opts, cli.WithName(projectName))
	} else if absDir, err := filepath.Abs(dir); err == nil {
		opts = append(opts, cli.WithName(filepath.Base(absDir)))
	}

	options, err := cli.NewProjectOptions([]string{composePath}, opts...)
	if err != nil {
		return nil, &errdefs.ConfigError{Path: composePath, Msg: "invalid compose options", Err: err}
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return nil, &errdefs.ConfigError{Path: composePath, Msg: "invalid compose file", Err: err}
	}
	return project, nil
}

// LoadFromContent parses compose content held in memory, such as the file
// stored on a remote target.
func LoadFromContent(ctx context.Context, content []byte, projectName string) (*types.Project, error) {
	tmpDir, err := os.MkdirTemp("", "stack-sync-compose-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, "compose.yaml")
	if err := os.WriteFile(tmpFile, content, 0644); err != nil {
		return nil, &errdefs.IOError{Op: "write", Path: tmpFile, Err: err}
	}

	return Load(ctx, tmpFile, projectName)
}

// ServiceNames returns the service names of project, sorted.
func ServiceNames(project *types.Project) []string {
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

