package stacks

import (
	"fmt"
	"regexp"
)

// projectName matches the names docker compose accepts as project names.
// Stacks are deployed as compose projects, on the SSH host through the
// stack directory name and on Portainer through the stack name.
var projectName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateName checks that name can be used as a compose project name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("stack name must not be empty")
	}
	if !projectName.MatchString(name) {
		return fmt.Errorf("invalid stack name %q: must contain only lowercase letters, digits, '-' and '_' and start with a letter or digit", name)
	}
	return nil
}
