package state

import (
	"context"
	"fmt"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Fetcher reads the state of one stack from a target.
type Fetcher interface {
	FetchState(ctx context.Context, name string) (*Remote, error)
}

// Discover fetches the state of name once. A stack that does not exist on
// the target yields (nil, nil); every other failure is returned.
func Discover(ctx context.Context, f Fetcher, name string) (*Remote, error) {
	remote, err := f.FetchState(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch state of stack %s: %w", name, err)
	}
	return remote, nil
}
