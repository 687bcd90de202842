package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// ErrNoConfig is returned by commands that need an existing local manifest.
var ErrNoConfig = errors.New("no stack-sync config found. Run 'stack-sync init' first")

// parentFile is the on-disk form of a parent config written by init.
type parentFile struct {
	Mode       string `toml:"mode,omitempty"`
	APIKey     string `toml:"portainer_api_key,omitempty"`
	Host       string `toml:"host"`
	EndpointID uint64 `toml:"endpoint_id,omitempty"`
	SSHUser    string `toml:"ssh_user,omitempty"`
	SSHKey     string `toml:"ssh_key,omitempty"`
	SSHOptions string `toml:"ssh_options,omitempty"`
	HostDir    string `toml:"host_dir,omitempty"`
}

// WriteParent writes the credentials of global to path. The file may hold an
// API key, so it is only readable by the owner.
func WriteParent(path string, global GlobalConfig) error {
	var pf parentFile
	switch g := global.(type) {
	case Portainer:
		pf = parentFile{
			Mode:       string(ModePortainer),
			APIKey:     g.APIKey,
			Host:       g.Host,
			EndpointID: g.EndpointID,
		}
	case SSH:
		pf = parentFile{
			Mode:       string(ModeSSH),
			Host:       g.Host,
			SSHUser:    g.User,
			SSHKey:     g.Key,
			SSHOptions: g.Options,
			HostDir:    g.HostDir,
		}
	default:
		return fmt.Errorf("unsupported config type %T", global)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(pf); err != nil {
		return fmt.Errorf("failed to encode parent config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &errdefs.IOError{Op: "create", Path: filepath.Dir(path), Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return &errdefs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

const localTemplate = `# Stacks managed from this directory.
#
# [stacks.web]
# compose_file = "web.compose.yaml"
# env_file = "web.env"
# enabled = true
`

// WriteLocalTemplate writes a commented local manifest without stacks.
func WriteLocalTemplate(path string) error {
	if err := os.WriteFile(path, []byte(localTemplate), 0644); err != nil {
		return &errdefs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// StackDeclared reports whether the config file at path declares name.
func StackDeclared(path, name string) (bool, error) {
	frag, err := LoadFragment(path)
	if err != nil {
		return false, err
	}
	_, ok := frag.Stacks[name]
	return ok, nil
}

// SetStack declares name in the config file at path, replacing an existing
// declaration of the same name. Other content of the file is kept as is. The
// file is left untouched when the result would not decode to exactly one
// declaration of name.
func SetStack(path, name, composeFile string, envFile *string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &errdefs.IOError{Op: "read", Path: path, Err: err}
	}
	content := removeStack(string(data), name)

	stripped, err := ParseFragment(path, content)
	if err != nil {
		return &errdefs.ConfigError{Path: path, Msg: "cannot replace stack " + name, Err: err}
	}
	if _, ok := stripped.Stacks[name]; ok {
		return errdefs.Configf(path, "cannot replace stack %s: declaration format not recognised", name)
	}

	entry := StackEntry{ComposeFile: composeFile, EnvFile: envFile}
	var body bytes.Buffer
	if err := toml.NewEncoder(&body).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode stack %s: %w", name, err)
	}

	var out strings.Builder
	out.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "\n[stacks.%s]\n", tableKey(name))
	out.Write(body.Bytes())

	if _, err := ParseFragment(path, out.String()); err != nil {
		return &errdefs.ConfigError{Path: path, Msg: "cannot declare stack " + name, Err: err}
	}
	if err := os.WriteFile(path, []byte(out.String()), 0644); err != nil {
		return &errdefs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// tableKey quotes name when it is not a bare TOML key.
func tableKey(name string) string {
	for _, r := range name {
		bare := r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !bare {
			return fmt.Sprintf("%q", name)
		}
	}
	return name
}

// keyVariants are the spellings of name as a TOML key.
func keyVariants(name string) []string {
	return []string{name, fmt.Sprintf("%q", name), "'" + name + "'"}
}

// removeStack drops every declaration of name from content: a
// [stacks.<name>] table up to the next table header, and name as an inline
// or dotted key under [stacks] or as stacks.<name> at the top level.
func removeStack(content, name string) string {
	var headers, rootKeys []string
	for _, k := range keyVariants(name) {
		headers = append(headers, "[stacks."+k+"]")
		rootKeys = append(rootKeys, "stacks."+k)
	}
	stackKeys := keyVariants(name)

	var out strings.Builder
	table := ""
	skipping := false
	for _, line := range strings.SplitAfter(content, "\n") {
		norm := strings.Join(strings.Fields(line), "")
		if strings.HasPrefix(norm, "[") {
			table = tableHeader(norm)
			skipping = slices.Contains(headers, table)
		}
		drop := skipping
		switch table {
		case "":
			drop = drop || declaresKey(norm, rootKeys)
		case "[stacks]":
			drop = drop || declaresKey(norm, stackKeys)
		}
		if !drop {
			out.WriteString(line)
		}
	}
	return strings.TrimRight(out.String(), "\n") + "\n"
}

// tableHeader returns the header of a space-free header line without a
// trailing comment.
func tableHeader(norm string) string {
	if i := strings.Index(norm, "]#"); i >= 0 {
		return norm[:i+1]
	}
	return norm
}

// declaresKey reports whether the space-free line assigns one of keys or a
// dotted key below it.
func declaresKey(norm string, keys []string) bool {
	for _, k := range keys {
		if strings.HasPrefix(norm, k+"=") || strings.HasPrefix(norm, k+".") {
			return true
		}
	}
	return false
}
