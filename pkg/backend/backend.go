// Package backend defines the capability every remote target implements.
package backend

import (
	"context"
	"fmt"

	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// Backend manages stacks on one remote target. Implementations are selected
// once per invocation from the global config.
type Backend interface {
	// Target is the host label used in messages.
	Target() string
	Exists(ctx context.Context, name string) (bool, error)
	// FetchState returns an *errdefs.NotFoundError when the stack is absent.
	FetchState(ctx context.Context, name string) (*state.Remote, error)
	Create(ctx context.Context, name, compose string, env []envfile.Var) (Identity, error)
	Update(ctx context.Context, name, compose string, env []envfile.Var, forceRecreate bool) (Identity, error)
	Start(ctx context.Context, name string) (Identity, error)
	Stop(ctx context.Context, name string) (Identity, error)
}

// Identity identifies a stack a backend acted on.
type Identity struct {
	Name   string
	ID     int64 // 0 when the backend has no stack ids
	Target string
}

func (i Identity) String() string {
	if i.ID != 0 {
		return fmt.Sprintf("id: %d", i.ID)
	}
	return i.Target
}
