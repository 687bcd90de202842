// Package engine reconciles declared stacks with a remote backend.
//
// Every stack is handled on its own: its remote state is fetched once, a
// single action is decided from the declared and observed state, and at
// most one backend mutation is performed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/backend"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/stacks"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// Options tune a single stack operation.
type Options struct {
	DryRun  bool
	Verbose bool
}

// SyncAllOptions tune a batch of syncs.
type SyncAllOptions struct {
	Options
	// FailFast stops at the first failing stack.
	FailFast bool
}

// Engine drives one backend and reports to one reporter.
type Engine struct {
	backend  backend.Backend
	reporter reporter.Reporter
	now      func() time.Time
}

// New returns an engine for b reporting to r.
func New(b backend.Backend, r reporter.Reporter) *Engine {
	return &Engine{backend: b, reporter: r, now: time.Now}
}

// local is the declared content of an enabled stack.
type local struct {
	compose string
	env     []envfile.Var
}

func readLocal(s stacks.Stack) (*local, error) {
	path := s.ComposePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errdefs.IOError{Op: "read", Path: path, Err: err}
	}
	l := &local{compose: string(data)}
	if envPath, ok := s.EnvPath(); ok {
		if l.env, err = envfile.ReadFile(envPath); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func ref(r *state.Remote) string {
	return backend.Identity{Name: r.Name, ID: r.ID, Target: r.Target}.String()
}

// Sync reconciles one stack.
func (e *Engine) Sync(ctx context.Context, s stacks.Stack, opts Options) error {
	var decl *local
	if s.Enabled {
		var err error
		if decl, err = readLocal(s); err != nil {
			return err
		}
	}

	remote, err := state.Discover(ctx, e.backend, s.Name)
	if err != nil {
		return err
	}

	match := false
	if decl != nil && remote != nil {
		drift := state.Compare(decl.compose, decl.env, remote)
		match = drift.InSync()
		zap.L().Debug("Compared stack", zap.String("stack", s.Name),
			zap.Bool("compose_drift", drift.Compose), zap.Bool("env_drift", drift.Env))
	}

	d := Decide(s.Enabled, remote, match)
	zap.L().Debug("Decided", zap.String("stack", s.Name), zap.Stringer("state", d.State), zap.Stringer("action", d.Action))

	if d.Action == ActionNone {
		e.reporter.Event(d.Idle, s.Name, "")
		if opts.Verbose && decl != nil {
			e.details(s, decl)
		}
		return nil
	}

	would, doing, done := d.Action.events()
	if opts.DryRun {
		refText := ""
		if remote != nil {
			refText = ref(remote)
		}
		e.reporter.Event(would, s.Name, refText)
		if opts.Verbose && decl != nil {
			e.details(s, decl)
			if d.Action == ActionUpdate {
				e.explain(ctx, s, decl, remote)
			}
		}
		return nil
	}

	e.reporter.Event(doing, s.Name, "")
	if opts.Verbose && decl != nil {
		e.details(s, decl)
	}

	var id backend.Identity
	switch d.Action {
	case ActionCreate:
		id, err = e.backend.Create(ctx, s.Name, decl.compose, decl.env)
	case ActionUpdate:
		id, err = e.backend.Update(ctx, s.Name, decl.compose, decl.env, false)
	case ActionStart:
		id, err = e.backend.Start(ctx, s.Name)
	case ActionStop:
		id, err = e.backend.Stop(ctx, s.Name)
	}
	if err != nil {
		return err
	}
	e.reporter.Event(done, s.Name, id.String())
	return nil
}

func (e *Engine) details(s stacks.Stack, decl *local) {
	d := reporter.Details{
		Host:         s.Host,
		ComposePath:  s.ComposePath(),
		ComposeBytes: len(decl.compose),
		EndpointID:   s.EndpointID,
	}
	if envPath, ok := s.EnvPath(); ok {
		d.EnvPath = envPath
		d.EnvVars = len(decl.env)
	}
	e.reporter.Details(d)
}

// SyncAll syncs stacks one after another. Failures are collected and
// returned together unless FailFast is set.
func (e *Engine) SyncAll(ctx context.Context, list []stacks.Stack, opts SyncAllOptions) error {
	var errs []error
	for _, s := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.Sync(ctx, s, opts.Options); err != nil {
			zap.L().Debug("Stack failed", zap.String("stack", s.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("stack %s: %w", s.Name, err))
			if opts.FailFast {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Redeploy pushes the remote stack's own content back with a forced image
// pull and container recreation. Local files are not read.
func (e *Engine) Redeploy(ctx context.Context, s stacks.Stack, opts Options) error {
	if !s.Enabled {
		e.reporter.Event(reporter.Disabled, s.Name, "")
		return nil
	}

	remote, err := state.Discover(ctx, e.backend, s.Name)
	if err != nil {
		return err
	}
	if remote == nil {
		if opts.DryRun {
			e.reporter.Event(reporter.NotFound, s.Name, "")
			return nil
		}
		return &errdefs.NotFoundError{Name: s.Name, Target: e.backend.Target()}
	}

	if opts.DryRun {
		e.reporter.Event(reporter.WouldRedeploy, s.Name, ref(remote))
		if opts.Verbose {
			e.reporter.View(remote, true, e.now())
		}
		return nil
	}

	e.reporter.Event(reporter.Redeploying, s.Name, "")
	id, err := e.backend.Update(ctx, s.Name, remote.ComposeContent, remote.Env, true)
	if err != nil {
		return err
	}
	e.reporter.Event(reporter.Redeployed, s.Name, id.String())
	return nil
}

// View reports the remote status of a stack. A missing stack is reported,
// not returned as an error.
func (e *Engine) View(ctx context.Context, s stacks.Stack, opts Options) error {
	remote, err := state.Discover(ctx, e.backend, s.Name)
	if err != nil {
		return err
	}
	if remote == nil {
		e.reporter.Event(reporter.NotFound, s.Name, "")
		return nil
	}
	e.reporter.View(remote, opts.Verbose, e.now())
	return nil
}
