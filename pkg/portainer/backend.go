package portainer

import (
	"context"
	"sync"

	"github.com/stack-sync/stack-sync/pkg/backend"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// Backend manages stacks through a Portainer server.
type Backend struct {
	client          *Client
	defaultEndpoint uint64

	mu        sync.RWMutex
	endpoints map[string]uint64
	// known holds the stacks seen by FetchState so that a following
	// mutation does not list every stack again.
	known map[string]*Stack
}

var _ backend.Backend = (*Backend)(nil)

// NewBackend returns a backend that creates stacks on defaultEndpoint unless
// SetEndpoint overrides it for a stack.
func NewBackend(client *Client, defaultEndpoint uint64) *Backend {
	return &Backend{
		client:          client,
		defaultEndpoint: defaultEndpoint,
		endpoints:       make(map[string]uint64),
		known:           make(map[string]*Stack),
	}
}

// SetEndpoint sets the environment new stacks called name are created on.
func (b *Backend) SetEndpoint(name string, endpointID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[name] = endpointID
}

func (b *Backend) endpoint(name string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id, ok := b.endpoints[name]; ok {
		return id
	}
	return b.defaultEndpoint
}

func (b *Backend) Target() string {
	return b.client.host
}

func (b *Backend) identity(s *Stack) backend.Identity {
	return backend.Identity{Name: s.Name, ID: s.ID, Target: b.client.host}
}

// find returns the stack called name or a NotFoundError.
func (b *Backend) find(ctx context.Context, name string) (*Stack, error) {
	s, err := b.client.FindStack(ctx, name)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &errdefs.NotFoundError{Name: name, Target: b.client.host}
	}
	return s, nil
}

// lookup is find, answered from the last FetchState of name when there was
// one. Stack IDs and endpoints do not change over a stack's life.
func (b *Backend) lookup(ctx context.Context, name string) (*Stack, error) {
	b.mu.RLock()
	s, ok := b.known[name]
	b.mu.RUnlock()
	if ok {
		return s, nil
	}
	return b.find(ctx, name)
}

func (b *Backend) Exists(ctx context.Context, name string) (bool, error) {
	s, err := b.client.FindStack(ctx, name)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

func (b *Backend) FetchState(ctx context.Context, name string) (*state.Remote, error) {
	b.mu.Lock()
	delete(b.known, name)
	b.mu.Unlock()
	s, err := b.find(ctx, name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.known[name] = s
	b.mu.Unlock()
	content, err := b.client.StackFile(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return &state.Remote{
		Name:           s.Name,
		Running:        s.Running(),
		ComposeContent: content,
		Env:            s.Env,
		Target:         b.client.host,
		ID:             s.ID,
		EndpointID:     s.EndpointID,
		Type:           s.TypeName(),
		CreatedBy:      s.CreatedBy,
		CreatedAt:      unixTime(s.CreationDate),
		UpdatedBy:      s.UpdatedBy,
		UpdatedAt:      unixTime(s.UpdateDate),
	}, nil
}

func (b *Backend) Create(ctx context.Context, name, compose string, env []envfile.Var) (backend.Identity, error) {
	s, err := b.client.CreateStack(ctx, b.endpoint(name), name, compose, env)
	if err != nil {
		return backend.Identity{}, err
	}
	return b.identity(s), nil
}

// Update replaces the content of an existing stack on the environment it
// lives on. forceRecreate makes Portainer pull images before redeploying.
func (b *Backend) Update(ctx context.Context, name, compose string, env []envfile.Var, forceRecreate bool) (backend.Identity, error) {
	s, err := b.lookup(ctx, name)
	if err != nil {
		return backend.Identity{}, err
	}
	if _, err := b.client.UpdateStack(ctx, s.ID, s.EndpointID, compose, env, forceRecreate); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(s), nil
}

func (b *Backend) Start(ctx context.Context, name string) (backend.Identity, error) {
	s, err := b.lookup(ctx, name)
	if err != nil {
		return backend.Identity{}, err
	}
	if err := b.client.StartStack(ctx, s.ID, s.EndpointID); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(s), nil
}

func (b *Backend) Stop(ctx context.Context, name string) (backend.Identity, error) {
	s, err := b.lookup(ctx, name)
	if err != nil {
		return backend.Identity{}, err
	}
	if err := b.client.StopStack(ctx, s.ID, s.EndpointID); err != nil {
		return backend.Identity{}, err
	}
	return b.identity(s), nil
}
