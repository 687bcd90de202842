package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/stack-sync/stack-sync/pkg/compose"
	"github.com/stack-sync/stack-sync/pkg/stacks"
)

// Validate loads the compose file of every enabled stack with its env file
// and reports the services found. Disabled stacks are skipped since they are
// never deployed. All stacks are checked; failures are returned together.
func Validate(ctx context.Context, list []stacks.Stack, report func(format string, args ...any)) error {
	var errs []error
	for _, s := range list {
		if !s.Enabled {
			continue
		}
		envPath, _ := s.EnvPath()
		project, err := compose.LoadWithEnv(ctx, s.ComposePath(), envPath, s.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("stack %s: %w", s.Name, err))
			continue
		}
		if report != nil {
			report("%s: %d service(s) %v", s.Name, len(project.Services), compose.ServiceNames(project))
		}
	}
	return errors.Join(errs...)
}
