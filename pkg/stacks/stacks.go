// Package stacks expands the stack entries of a local manifest into fully
// resolved records.
package stacks

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Stack is a declared stack merged with the global config.
type Stack struct {
	Name        string
	ComposeFile string
	EnvFile     string // empty when the stack has no env file
	Host        string
	EndpointID  uint64 // always 0 in ssh mode
	Enabled     bool
	BaseDir     string
}

// ComposePath is the absolute path of the compose file.
func (s Stack) ComposePath() string {
	return join(s.BaseDir, s.ComposeFile)
}

// EnvPath is the absolute path of the env file, if the stack has one.
func (s Stack) EnvPath() (string, bool) {
	if s.EnvFile == "" {
		return "", false
	}
	return join(s.BaseDir, s.EnvFile), true
}

func join(base, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(base, rel)
}

// Resolve returns the stacks named in names, or every stack of the manifest
// sorted by name when names is empty.
func Resolve(res *config.Resolved, names []string) ([]Stack, error) {
	if len(names) == 0 {
		names = res.Local.StackNames()
		sort.Strings(names)
	}

	out := make([]Stack, 0, len(names))
	for _, name := range names {
		entry, ok := res.Local.Stacks[name]
		if !ok {
			return nil, &errdefs.ConfigError{
				Path: res.LocalPath,
				Key:  "stacks." + name,
				Msg:  "stack " + name + " is not declared",
			}
		}
		if err := ValidateName(name); err != nil {
			return nil, &errdefs.ConfigError{Path: res.LocalPath, Key: "stacks." + name, Msg: err.Error()}
		}
		out = append(out, newStack(name, entry, res.Global, res.BaseDir()))
	}
	return out, nil
}

func newStack(name string, entry config.StackEntry, global config.GlobalConfig, baseDir string) Stack {
	s := Stack{
		Name:        name,
		ComposeFile: strings.TrimSpace(entry.ComposeFile),
		Host:        global.Target(),
		Enabled:     entry.IsEnabled(),
		BaseDir:     baseDir,
	}
	if entry.EnvFile != nil {
		s.EnvFile = strings.TrimSpace(*entry.EnvFile)
	}
	if p, ok := global.(config.Portainer); ok {
		s.EndpointID = p.EndpointID
		if entry.EndpointID != nil {
			s.EndpointID = *entry.EndpointID
		}
	}
	return s
}
