package ssh

import (
	"context"
	"strings"

	"github.com/stack-sync/stack-sync/pkg/backend"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// docker compose command lines run in the stack directory.
const (
	composeUp        = "docker compose up -d"
	composeRecreate  = "docker compose pull && docker compose up -d --force-recreate"
	composeDown      = "docker compose down"
	composeRunningID = "docker compose ps -q"
)

// Backend manages stacks as directories under host_dir on a docker host.
type Backend struct {
	client *Client
}

var _ backend.Backend = (*Backend)(nil)

// NewBackend returns a backend running its commands through client.
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Target() string {
	return b.client.host
}

func (b *Backend) identity(name string) backend.Identity {
	return backend.Identity{Name: name, Target: b.client.host}
}

func (b *Backend) Exists(ctx context.Context, name string) (bool, error) {
	return b.client.FileExists(ctx, "exists", b.client.ComposePath(name))
}

func (b *Backend) FetchState(ctx context.Context, name string) (*state.Remote, error) {
	exists, err := b.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &errdefs.NotFoundError{Name: name, Target: b.client.host}
	}

	compose, err := b.client.ReadFile(ctx, "fetch", b.client.ComposePath(name))
	if err != nil {
		return nil, err
	}
	env, err := b.client.ReadOptionalFile(ctx, "fetch", b.client.EnvPath(name))
	if err != nil {
		return nil, err
	}
	ids, err := b.client.Compose(ctx, "fetch", name, composeRunningID)
	if err != nil {
		return nil, err
	}

	return &state.Remote{
		Name:           name,
		Running:        strings.TrimSpace(ids) != "",
		ComposeContent: compose,
		Env:            envfile.Parse(env),
		Target:         b.client.host,
	}, nil
}

// deploy writes the stack files and brings the project up. On create the
// env file is always written, empty when there is no env, so that a later
// fetch sees the same env as was deployed. keepCompose and keepEnv leave a
// file that already holds the wanted content as it is.
func (b *Backend) deploy(ctx context.Context, op, name, compose string, env []envfile.Var, up string, keepCompose, keepEnv bool) (backend.Identity, error) {
	if !keepCompose || !keepEnv {
		if err := b.client.MkdirAll(ctx, op, b.client.StackDir(name)); err != nil {
			return backend.Identity{}, err
		}
	}
	if !keepCompose {
		if err := b.client.WriteFile(ctx, op, b.client.ComposePath(name), compose); err != nil {
			return backend.Identity{}, err
		}
	}
	if !keepEnv {
		if err := b.client.WriteFile(ctx, op, b.client.EnvPath(name), envfile.Serialize(env)); err != nil {
			return backend.Identity{}, err
		}
	}
	if _, err := b.client.Compose(ctx, op, name, up); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(name), nil
}

func (b *Backend) Create(ctx context.Context, name, compose string, env []envfile.Var) (backend.Identity, error) {
	return b.deploy(ctx, "create", name, compose, env, composeUp, false, false)
}

// Update rewrites the stack files whose content differs. An env file that
// already decodes to env is kept, comments included. forceRecreate pulls
// images and recreates every container.
func (b *Backend) Update(ctx context.Context, name, compose string, env []envfile.Var, forceRecreate bool) (backend.Identity, error) {
	currentCompose, err := b.client.ReadOptionalFile(ctx, "update", b.client.ComposePath(name))
	if err != nil {
		return backend.Identity{}, err
	}
	currentEnv, err := b.client.ReadOptionalFile(ctx, "update", b.client.EnvPath(name))
	if err != nil {
		return backend.Identity{}, err
	}
	up := composeUp
	if forceRecreate {
		up = composeRecreate
	}
	keepCompose := currentCompose == compose
	keepEnv := envfile.Equal(envfile.Parse(currentEnv), env)
	return b.deploy(ctx, "update", name, compose, env, up, keepCompose, keepEnv)
}

func (b *Backend) Start(ctx context.Context, name string) (backend.Identity, error) {
	if _, err := b.client.Compose(ctx, "start", name, composeUp); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(name), nil
}

func (b *Backend) Stop(ctx context.Context, name string) (backend.Identity, error) {
	if _, err := b.client.Compose(ctx, "stop", name, composeDown); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(name), nil
}
