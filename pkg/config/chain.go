// Package config resolves the layered .stack-sync.toml files into one
// validated GlobalConfig and the local stack manifest.
//
// Resolution walks from the starting directory towards the user's home
// directory. The nearest config file is the local manifest; global keys are
// inherited upward, nearer files winning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Options are the process-wide inputs of ResolveWith.
type Options struct {
	// APIKey overrides any portainer_api_key found in files when non-empty.
	APIKey string
	// HomeDir bounds the walk. Config files above it are never read when
	// the walk starts inside it.
	HomeDir string
}

// Resolved is the outcome of a chain resolution.
type Resolved struct {
	Global GlobalConfig
	// Local is the manifest carrying the stack definitions.
	Local *Fragment
	// LocalPath is the absolute path of the local manifest.
	LocalPath string
}

// BaseDir is the directory stack paths are relative to.
func (r *Resolved) BaseDir() string {
	return filepath.Dir(r.LocalPath)
}

// Resolve reads the environment and home directory once and resolves the
// config chain starting at start.
func Resolve(start string) (*Resolved, error) {
	e, err := LoadEnvironment()
	if err != nil {
		return nil, err
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return ResolveWith(start, Options{APIKey: e.APIKey, HomeDir: home})
}

// accumulator folds fragments nearest first. A field is adopted only while
// it is still empty.
type accumulator struct {
	mode       string
	apiKey     string
	host       string
	endpointID *uint64
	sshUser    string
	sshKey     string
	sshOptions string
	hostDir    string

	local     *Fragment
	localPath string
}

func fill(dst *string, src *string) {
	if *dst == "" && src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (a *accumulator) adopt(f *Fragment) {
	fill(&a.mode, f.Mode)
	fill(&a.apiKey, f.APIKey)
	fill(&a.host, f.Host)
	fill(&a.sshUser, f.SSHUser)
	fill(&a.sshKey, f.SSHKey)
	fill(&a.sshOptions, f.SSHOptions)
	fill(&a.hostDir, f.HostDir)
	if a.endpointID == nil && f.EndpointID != nil {
		id := *f.EndpointID
		a.endpointID = &id
	}
}

// complete reports whether the walk can stop early: the mode is known and
// every field it requires is set.
func (a *accumulator) complete() bool {
	switch Mode(a.mode) {
	case ModePortainer:
		return a.apiKey != "" && a.host != ""
	case ModeSSH:
		return a.host != "" && a.hostDir != ""
	}
	return false
}

// ResolveWith resolves the config chain with explicit process inputs.
func ResolveWith(start string, opts Options) (*Resolved, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &errdefs.ConfigError{Path: abs, Msg: "config path not found", Err: err}
	}

	acc := &accumulator{apiKey: strings.TrimSpace(opts.APIKey)}

	startDir := abs
	if !info.IsDir() {
		startDir = filepath.Dir(abs)
		fixed, err := LoadFragment(abs)
		if err != nil {
			return nil, err
		}
		acc.local = fixed
		acc.localPath = canonical(abs)
		acc.adopt(fixed)
	}

	home := ""
	if opts.HomeDir != "" {
		home = canonical(opts.HomeDir)
	}
	dir := canonical(startDir)
	startedInHome := home != "" && (within(startDir, opts.HomeDir) || within(dir, home))

	for {
		if !acc.complete() {
			if path := FindConfigFile(dir); path != "" && canonical(path) != acc.localPath {
				frag, err := LoadFragment(path)
				if err != nil {
					return nil, err
				}
				zap.L().Debug("Loaded config fragment", zap.String("path", path))
				if acc.local == nil {
					acc.local = frag
					acc.localPath = canonical(path)
				}
				acc.adopt(frag)
			}
		}
		if acc.complete() {
			break
		}
		if home != "" && dir == home {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		// A symlinked start directory can resolve outside the home tree.
		if startedInHome && acc.local != nil && !within(parent, home) {
			break
		}
		dir = parent
	}

	if acc.local == nil {
		return nil, &errdefs.ConfigError{
			Path: filepath.Join(startDir, DotFileName),
			Msg:  "no config file found; run 'stack-sync init' to create one",
		}
	}

	global, err := acc.validate()
	if err != nil {
		if cfgErr, ok := err.(*errdefs.ConfigError); ok {
			cfgErr.Path = acc.localPath
		}
		return nil, err
	}

	return &Resolved{Global: global, Local: acc.local, LocalPath: acc.localPath}, nil
}

func missing(key, hint string) error {
	return &errdefs.ConfigError{Key: key, Msg: fmt.Sprintf("missing required config key %q: %s", key, hint)}
}

func (a *accumulator) validate() (GlobalConfig, error) {
	mode := Mode(a.mode)
	if mode == "" {
		mode = ModePortainer
	}
	switch mode {
	case ModePortainer:
		if a.apiKey == "" {
			return nil, missing("portainer_api_key", "set portainer_api_key in a "+DotFileName+" or export "+APIKeyEnv)
		}
		if a.host == "" {
			return nil, missing("host", "set host to the Portainer URL in a "+DotFileName)
		}
		endpointID := DefaultEndpointID
		if a.endpointID != nil {
			endpointID = *a.endpointID
		}
		return Portainer{
			APIKey:     a.apiKey,
			Host:       a.host,
			EndpointID: endpointID,
		}, nil
	case ModeSSH:
		if a.host == "" {
			return nil, missing("host", "set host to the docker host name in a "+DotFileName)
		}
		if a.hostDir == "" {
			return nil, missing("host_dir", "set host_dir to the remote stacks directory in a "+DotFileName)
		}
		key := a.sshKey
		if key != "" {
			expanded, err := homedir.Expand(key)
			if err != nil {
				return nil, &errdefs.ConfigError{Key: "ssh_key", Msg: "failed to expand ssh_key", Err: err}
			}
			key = expanded
		}
		return SSH{
			Host:    a.host,
			User:    a.sshUser,
			Key:     key,
			Options: a.sshOptions,
			HostDir: strings.TrimRight(a.hostDir, "/"),
		}, nil
	}
	return nil, &errdefs.ConfigError{Key: "mode", Msg: fmt.Sprintf("unknown mode %q (expected portainer or ssh)", a.mode)}
}

// canonical resolves symlinks, falling back to the cleaned absolute path when
// the path cannot be resolved.
func canonical(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved, err = filepath.Abs(path)
		if err != nil {
			return filepath.Clean(path)
		}
	}
	return resolved
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
