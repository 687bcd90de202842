package state

import (
	"strings"
	"unicode"

	"github.com/stack-sync/stack-sync/pkg/envfile"
)

// Drift describes which parts of a stack differ from the remote.
type Drift struct {
	Compose bool
	Env     bool
}

// InSync reports whether neither compose content nor env differ.
func (d Drift) InSync() bool {
	return !d.Compose && !d.Env
}

// Compare checks local compose content and env against remote. Compose
// content is compared after trimming trailing whitespace, since the remote
// side may add or drop a final newline. Env is compared as an unordered set.
func Compare(localCompose string, localEnv []envfile.Var, remote *Remote) Drift {
	return Drift{
		Compose: !ComposeEqual(localCompose, remote.ComposeContent),
		Env:     !envfile.Equal(localEnv, remote.Env),
	}
}

// ComposeEqual compares compose content ignoring trailing whitespace.
func ComposeEqual(a, b string) bool {
	return strings.TrimRightFunc(a, unicode.IsSpace) == strings.TrimRightFunc(b, unicode.IsSpace)
}

