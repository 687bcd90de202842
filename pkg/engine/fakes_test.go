package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stack-sync/stack-sync/pkg/backend"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/stacks"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// fakeBackend is an in-memory target that behaves like a real one: writes
// change what later fetches return.
type fakeBackend struct {
	stacks   map[string]*state.Remote
	calls    []string
	fetchErr error
	failOn   map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{stacks: make(map[string]*state.Remote), failOn: make(map[string]error)}
}

func (f *fakeBackend) put(name, compose string, env []envfile.Var, running bool) {
	f.stacks[name] = &state.Remote{Name: name, ComposeContent: compose, Env: env, Running: running, Target: "fake", ID: int64(len(f.stacks) + 1)}
}

// mutations returns the recorded calls other than reads.
func (f *fakeBackend) mutations() []string {
	var out []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "fetch ") && !strings.HasPrefix(c, "exists ") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) Target() string { return "fake" }

func (f *fakeBackend) Exists(_ context.Context, name string) (bool, error) {
	f.calls = append(f.calls, "exists "+name)
	_, ok := f.stacks[name]
	return ok, nil
}

func (f *fakeBackend) FetchState(_ context.Context, name string) (*state.Remote, error) {
	f.calls = append(f.calls, "fetch "+name)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	s, ok := f.stacks[name]
	if !ok {
		return nil, &errdefs.NotFoundError{Name: name, Target: "fake"}
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) record(op, name string, force bool) (backend.Identity, error) {
	call := op + " " + name
	if force {
		call += " force"
	}
	f.calls = append(f.calls, call)
	if err := f.failOn[op]; err != nil {
		return backend.Identity{}, err
	}
	id := backend.Identity{Name: name, Target: "fake"}
	if s, ok := f.stacks[name]; ok {
		id.ID = s.ID
	}
	return id, nil
}

func (f *fakeBackend) Create(_ context.Context, name, compose string, env []envfile.Var) (backend.Identity, error) {
	if err := f.failOn["create"]; err == nil {
		f.put(name, compose, env, true)
	}
	return f.record("create", name, false)
}

func (f *fakeBackend) Update(_ context.Context, name, compose string, env []envfile.Var, force bool) (backend.Identity, error) {
	if s, ok := f.stacks[name]; ok && f.failOn["update"] == nil {
		s.ComposeContent, s.Env, s.Running = compose, env, true
	}
	return f.record("update", name, force)
}

func (f *fakeBackend) Start(_ context.Context, name string) (backend.Identity, error) {
	if s, ok := f.stacks[name]; ok && f.failOn["start"] == nil {
		s.Running = true
	}
	return f.record("start", name, false)
}

func (f *fakeBackend) Stop(_ context.Context, name string) (backend.Identity, error) {
	if s, ok := f.stacks[name]; ok && f.failOn["stop"] == nil {
		s.Running = false
	}
	return f.record("stop", name, false)
}

// recorder keeps reported events as "Label name" strings.
type recorder struct {
	events   []string
	details  []reporter.Details
	diffs    []string
	services [][]state.ServiceChange
	env      [][]string
	views    []*state.Remote
	infos    []string
}

func (r *recorder) Event(e reporter.Event, name, ref string) {
	r.events = append(r.events, e.Label()+" "+name)
}
func (r *recorder) Details(d reporter.Details) { r.details = append(r.details, d) }
func (r *recorder) Diff(_, unified string)     { r.diffs = append(r.diffs, unified) }
func (r *recorder) Services(_ string, c []state.ServiceChange) {
	r.services = append(r.services, c)
}
func (r *recorder) EnvChanges(_ string, added, changed, removed []string) {
	r.env = append(r.env, append(append(append([]string{}, added...), changed...), removed...))
}
func (r *recorder) View(remote *state.Remote, _ bool, _ time.Time) { r.views = append(r.views, remote) }
func (r *recorder) Info(format string, args ...any) {
	r.infos = append(r.infos, fmt.Sprintf(format, args...))
}

// localStack writes the given compose and env into a temp dir and returns a
// stack declaring them. env == nil means no env file.
func localStack(t *testing.T, name, compose string, env *string, enabled bool) stacks.Stack {
	t.Helper()
	dir := t.TempDir()
	s := stacks.Stack{Name: name, ComposeFile: name + ".yaml", Host: "fake", Enabled: enabled, BaseDir: dir}
	require.NoError(t, os.WriteFile(filepath.Join(dir, s.ComposeFile), []byte(compose), 0644))
	if env != nil {
		s.EnvFile = name + ".env"
		require.NoError(t, os.WriteFile(filepath.Join(dir, s.EnvFile), []byte(*env), 0644))
	}
	return s
}

func strPtr(s string) *string { return &s }
