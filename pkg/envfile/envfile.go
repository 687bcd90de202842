// Package envfile reads and writes the plain KEY=VALUE environment format
// used for stack variables. There is no quoting, escaping or interpolation:
// the first "=" separates name from value and both sides are trimmed.
package envfile

import (
	"os"
	"strings"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Var is one environment variable. The JSON tags match the Portainer wire
// format.
type Var struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parse returns the variables declared in content, in order.
func Parse(content string) []Var {
	var vars []Var
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars = append(vars, Var{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return vars
}

// Serialize renders vars as name=value lines joined by "\n".
func Serialize(vars []Var) string {
	lines := make([]string, 0, len(vars))
	for _, v := range vars {
		lines = append(lines, v.Name+"="+v.Value)
	}
	return strings.Join(lines, "\n")
}

// ReadFile parses the env file at path.
func ReadFile(path string) ([]Var, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errdefs.IOError{Op: "read", Path: path, Err: err}
	}
	return Parse(string(data)), nil
}

// WriteFile serializes vars to path.
func WriteFile(path string, vars []Var) error {
	if err := os.WriteFile(path, []byte(Serialize(vars)), 0644); err != nil {
		return &errdefs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Map builds a name → value map. When a name repeats, the last value wins.
func Map(vars []Var) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Name] = v.Value
	}
	return m
}

// Equal compares a and b as unordered sets keyed by name.
func Equal(a, b []Var) bool {
	ma, mb := Map(a), Map(b)
	if len(ma) != len(mb) {
		return false
	}
	for name, value := range ma {
		other, ok := mb[name]
		if !ok || other != value {
			return false
		}
	}
	return true
}
