package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Config file names looked up in every directory, in order of preference.
const (
	DotFileName     = ".stack-sync.toml"
	RegularFileName = "stack-sync.toml"
)

// Fragment is the raw content of one config file. Every global field is
// optional so that files at different directory levels can complete each
// other.
type Fragment struct {
	Mode       *string               `toml:"mode"`
	APIKey     *string               `toml:"portainer_api_key"`
	Host       *string               `toml:"host"`
	EndpointID *uint64               `toml:"endpoint_id"`
	SSHUser    *string               `toml:"ssh_user"`
	SSHKey     *string               `toml:"ssh_key"`
	SSHOptions *string               `toml:"ssh_options"`
	HostDir    *string               `toml:"host_dir"`
	Stacks     map[string]StackEntry `toml:"stacks"`
}

// StackEntry declares one stack in a config file.
type StackEntry struct {
	ComposeFile string  `toml:"compose_file"`
	EnvFile     *string `toml:"env_file"`
	EndpointID  *uint64 `toml:"endpoint_id"`
	Enabled     *bool   `toml:"enabled"`
}

// IsEnabled reports the enabled flag, which defaults to true.
func (e StackEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// StackNames returns the declared stack names in no particular order.
func (f *Fragment) StackNames() []string {
	names := make([]string, 0, len(f.Stacks))
	for name := range f.Stacks {
		names = append(names, name)
	}
	return names
}

// LoadFragment decodes the config file at path.
func LoadFragment(path string) (*Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errdefs.ConfigError{Path: path, Msg: "config file not found"}
		}
		return nil, &errdefs.ConfigError{Path: path, Msg: "failed to read config file", Err: err}
	}
	return ParseFragment(path, string(data))
}

// ParseFragment decodes config content; path is used for messages only.
func ParseFragment(path, content string) (*Fragment, error) {
	var f Fragment
	md, err := toml.Decode(content, &f)
	if err != nil {
		return nil, &errdefs.ConfigError{Path: path, Msg: "failed to parse config file", Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		zap.L().Warn("Ignoring unknown config keys", zap.String("path", path), zap.Strings("keys", keys))
	}
	for name, entry := range f.Stacks {
		if strings.TrimSpace(entry.ComposeFile) == "" {
			return nil, &errdefs.ConfigError{
				Path: path,
				Key:  "stacks." + name + ".compose_file",
				Msg:  "stack " + name + " is missing compose_file",
			}
		}
	}
	return &f, nil
}

// FindConfigFile returns the config file in dir, preferring the dotfile, or
// "" when the directory has none.
func FindConfigFile(dir string) string {
	for _, name := range []string{DotFileName, RegularFileName} {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LocalConfigPath returns the config file a command started at path would
// use as its local manifest without walking: path itself when it is a file,
// otherwise the config file in that directory (the dotfile name when there
// is none yet).
func LocalConfigPath(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	if found := FindConfigFile(path); found != "" {
		return found
	}
	return filepath.Join(path, DotFileName)
}

// LocalConfigExists reports whether LocalConfigPath(path) exists.
func LocalConfigExists(path string) bool {
	_, err := os.Stat(LocalConfigPath(path))
	return err == nil
}
