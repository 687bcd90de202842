package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/stacks"
	"github.com/stack-sync/stack-sync/pkg/state"
)

const (
	webV1 = "services:\n  web:\n    image: nginx:1.25\n"
	webV2 = "services:\n  web:\n    image: nginx:1.27\n"
)

func TestDecide(t *testing.T) {
	running := &state.Remote{Name: "web", Running: true}
	stopped := &state.Remote{Name: "web", Running: false}

	tests := []struct {
		name     string
		enabled  bool
		observed *state.Remote
		match    bool
		state    State
		action   Action
		idle     reporter.Event
	}{
		{"disabled missing", false, nil, false, Disabled, ActionNone, reporter.Disabled},
		{"disabled running", false, running, true, Disabled, ActionStop, 0},
		{"disabled stopped", false, stopped, false, Disabled, ActionNone, reporter.AlreadyStopped},
		{"missing", true, nil, false, Missing, ActionCreate, 0},
		{"out of sync running", true, running, false, OutOfSync, ActionUpdate, 0},
		{"out of sync stopped", true, stopped, false, OutOfSync, ActionUpdate, 0},
		{"stopped in sync", true, stopped, true, StoppedButInSync, ActionStart, 0},
		{"in sync", true, running, true, InSync, ActionNone, reporter.UpToDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.enabled, tt.observed, tt.match)
			assert.Equal(t, tt.state, d.State)
			assert.Equal(t, tt.action, d.Action)
			if tt.action == ActionNone {
				assert.Equal(t, tt.idle, d.Idle)
			}
		})
	}
}

func TestSyncCreatesMissingStack(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	s := localStack(t, "web", webV1, strPtr("A=1\nB=2\n"), true)

	require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

	assert.Equal(t, []string{"create web"}, b.mutations())
	assert.Equal(t, []string{"Creating web", "Created web"}, r.events)
	assert.Equal(t, webV1, b.stacks["web"].ComposeContent)
	assert.Equal(t, []envfile.Var{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, b.stacks["web"].Env)
}

func TestSyncIsIdempotent(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	s := localStack(t, "web", webV1, strPtr("A=1\n"), true)
	e := New(b, r)

	require.NoError(t, e.Sync(context.Background(), s, Options{}))
	require.NoError(t, e.Sync(context.Background(), s, Options{}))

	assert.Equal(t, []string{"create web"}, b.mutations())
	assert.Equal(t, "Up-to-Date web", r.events[len(r.events)-1])
}

func TestSyncUpdatesDrift(t *testing.T) {
	tests := []struct {
		name    string
		compose string
		env     []envfile.Var
		running bool
	}{
		{"compose differs", webV2, envfile.Parse("A=1"), true},
		{"env differs", webV1, envfile.Parse("A=2"), true},
		{"env removed", webV1, nil, true},
		{"stopped and out of sync", webV2, envfile.Parse("A=1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r := newFakeBackend(), &recorder{}
			b.put("web", tt.compose, tt.env, tt.running)
			s := localStack(t, "web", webV1, strPtr("A=1\n"), true)

			require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

			assert.Equal(t, []string{"update web"}, b.mutations())
			assert.Equal(t, []string{"Updating web", "Updated web"}, r.events)
			assert.Equal(t, webV1, b.stacks["web"].ComposeContent)
			assert.True(t, b.stacks["web"].Running)
		})
	}
}

func TestSyncIgnoresTrailingWhitespaceAndEnvOrder(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	b.put("web", webV1+"\n\n", envfile.Parse("B=2\nA=1"), true)
	s := localStack(t, "web", webV1, strPtr("A=1\nB=2\n"), true)

	require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

	assert.Empty(t, b.mutations())
	assert.Equal(t, []string{"Up-to-Date web"}, r.events)
}

func TestSyncStartsStoppedStack(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	b.put("web", webV1, nil, false)
	s := localStack(t, "web", webV1, nil, true)

	require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

	assert.Equal(t, []string{"start web"}, b.mutations())
	assert.Equal(t, []string{"Starting web", "Started web"}, r.events)
}

func TestSyncDisabled(t *testing.T) {
	t.Run("running is stopped", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV2, nil, true)
		s := localStack(t, "web", webV1, nil, false)

		require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

		assert.Equal(t, []string{"stop web"}, b.mutations())
		assert.Equal(t, []string{"Stopping web", "Stopped web"}, r.events)
	})

	t.Run("stopped stays stopped", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV1, nil, false)
		s := localStack(t, "web", webV1, nil, false)

		require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

		assert.Empty(t, b.mutations())
		assert.Equal(t, []string{"Stopped web"}, r.events)
	})

	t.Run("missing is never created", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		s := localStack(t, "web", webV1, nil, false)

		require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

		assert.Empty(t, b.mutations())
		assert.Equal(t, []string{"Disabled web"}, r.events)
	})

	t.Run("local files are not read", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV1, nil, true)
		s := stacks.Stack{Name: "web", ComposeFile: "missing.yaml", BaseDir: t.TempDir()}

		require.NoError(t, New(b, r).Sync(context.Background(), s, Options{}))

		assert.Equal(t, []string{"stop web"}, b.mutations())
	})
}

func TestSyncDryRun(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(b *fakeBackend)
		enabled bool
		want    string
	}{
		{"create", func(b *fakeBackend) {}, true, "Would Create web"},
		{"update", func(b *fakeBackend) { b.put("web", webV2, nil, true) }, true, "Would Update web"},
		{"start", func(b *fakeBackend) { b.put("web", webV1, nil, false) }, true, "Would Start web"},
		{"stop", func(b *fakeBackend) { b.put("web", webV1, nil, true) }, false, "Would Stop web"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r := newFakeBackend(), &recorder{}
			tt.setup(b)
			s := localStack(t, "web", webV1, nil, tt.enabled)

			require.NoError(t, New(b, r).Sync(context.Background(), s, Options{DryRun: true}))

			assert.Empty(t, b.mutations())
			assert.Equal(t, []string{tt.want}, r.events)
		})
	}
}

func TestSyncDryRunVerboseExplainsUpdate(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	b.put("web", webV2, envfile.Parse("A=1\nOLD=x\nSECRET=old"), true)
	s := localStack(t, "web", webV1, strPtr("A=1\nNEW=y\nSECRET=new\n"), true)

	require.NoError(t, New(b, r).Sync(context.Background(), s, Options{DryRun: true, Verbose: true}))

	assert.Empty(t, b.mutations())
	require.Len(t, r.details, 1)
	assert.Equal(t, "fake", r.details[0].Host)
	assert.Equal(t, len(webV1), r.details[0].ComposeBytes)
	assert.Equal(t, 3, r.details[0].EnvVars)

	require.Len(t, r.diffs, 1)
	assert.Contains(t, r.diffs[0], "-    image: nginx:1.27")
	assert.Contains(t, r.diffs[0], "+    image: nginx:1.25")

	require.Len(t, r.services, 1)
	require.Len(t, r.services[0], 1)
	assert.Equal(t, state.ServiceChanged, r.services[0][0].Change)
	assert.Equal(t, "nginx:1.25", r.services[0][0].LocalImage)

	require.Len(t, r.env, 1)
	assert.Equal(t, []string{"NEW", "SECRET", "OLD"}, r.env[0])
}

func TestSyncVerboseInSyncShowsDetails(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	b.put("web", webV1, nil, true)
	s := localStack(t, "web", webV1, nil, true)

	require.NoError(t, New(b, r).Sync(context.Background(), s, Options{Verbose: true}))

	require.Len(t, r.details, 1)
	assert.Empty(t, r.details[0].EnvPath)
	assert.Empty(t, r.diffs)
}

func TestSyncMissingComposeFileIsIOError(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	s := stacks.Stack{Name: "web", ComposeFile: "missing.yaml", BaseDir: t.TempDir(), Enabled: true}

	err := New(b, r).Sync(context.Background(), s, Options{})

	var ioErr *errdefs.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Empty(t, b.calls)
}

func TestSyncBackendErrors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.fetchErr = &errdefs.BackendError{Op: "fetch", Target: "fake", Status: 500}
		s := localStack(t, "web", webV1, nil, true)

		err := New(b, r).Sync(context.Background(), s, Options{})

		assert.True(t, errdefs.IsBackend(err))
		assert.Empty(t, b.mutations())
	})

	t.Run("mutation", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.failOn["create"] = &errdefs.BackendError{Op: "create", Target: "fake", Status: 409}
		s := localStack(t, "web", webV1, nil, true)

		err := New(b, r).Sync(context.Background(), s, Options{})

		assert.True(t, errdefs.IsBackend(err))
		assert.Equal(t, []string{"Creating web"}, r.events)
	})
}

func TestSyncAll(t *testing.T) {
	newStacks := func(t *testing.T) []stacks.Stack {
		broken := stacks.Stack{Name: "broken", ComposeFile: "missing.yaml", BaseDir: t.TempDir(), Enabled: true}
		return []stacks.Stack{
			localStack(t, "api", webV1, nil, true),
			broken,
			localStack(t, "web", webV1, nil, true),
		}
	}

	t.Run("continues past failures", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}

		err := New(b, r).SyncAll(context.Background(), newStacks(t), SyncAllOptions{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "stack broken")
		var ioErr *errdefs.IOError
		assert.True(t, errors.As(err, &ioErr))
		assert.Equal(t, []string{"create api", "create web"}, b.mutations())
	})

	t.Run("fail fast", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}

		err := New(b, r).SyncAll(context.Background(), newStacks(t), SyncAllOptions{FailFast: true})

		require.Error(t, err)
		assert.Equal(t, []string{"create api"}, b.mutations())
	})

	t.Run("cancelled", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := New(b, r).SyncAll(ctx, newStacks(t), SyncAllOptions{})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, b.calls)
	})
}

func TestRedeploy(t *testing.T) {
	t.Run("pushes remote content with force", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV2, envfile.Parse("A=remote"), true)
		s := localStack(t, "web", webV1, strPtr("A=local\n"), true)

		require.NoError(t, New(b, r).Redeploy(context.Background(), s, Options{}))

		assert.Equal(t, []string{"update web force"}, b.mutations())
		assert.Equal(t, webV2, b.stacks["web"].ComposeContent)
		assert.Equal(t, envfile.Parse("A=remote"), b.stacks["web"].Env)
		assert.Equal(t, []string{"Redeploying web", "Redeployed web"}, r.events)
	})

	t.Run("disabled", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV1, nil, true)
		s := localStack(t, "web", webV1, nil, false)

		require.NoError(t, New(b, r).Redeploy(context.Background(), s, Options{}))

		assert.Empty(t, b.calls)
		assert.Equal(t, []string{"Disabled web"}, r.events)
	})

	t.Run("missing", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		s := localStack(t, "web", webV1, nil, true)

		err := New(b, r).Redeploy(context.Background(), s, Options{})

		assert.True(t, errdefs.IsNotFound(err))
		assert.Empty(t, b.mutations())
	})

	t.Run("missing dry run", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		s := localStack(t, "web", webV1, nil, true)

		require.NoError(t, New(b, r).Redeploy(context.Background(), s, Options{DryRun: true}))

		assert.Equal(t, []string{"Not Found web"}, r.events)
	})

	t.Run("dry run verbose shows remote", func(t *testing.T) {
		b, r := newFakeBackend(), &recorder{}
		b.put("web", webV1, nil, true)
		s := localStack(t, "web", webV1, nil, true)

		require.NoError(t, New(b, r).Redeploy(context.Background(), s, Options{DryRun: true, Verbose: true}))

		assert.Empty(t, b.mutations())
		assert.Equal(t, []string{"Would Redep. web"}, r.events)
		require.Len(t, r.views, 1)
		assert.Equal(t, "web", r.views[0].Name)
	})
}

func TestView(t *testing.T) {
	b, r := newFakeBackend(), &recorder{}
	b.put("web", webV1, nil, true)
	e := New(b, r)

	require.NoError(t, e.View(context.Background(), stacks.Stack{Name: "web"}, Options{}))
	require.NoError(t, e.View(context.Background(), stacks.Stack{Name: "api"}, Options{}))

	require.Len(t, r.views, 1)
	assert.Equal(t, "web", r.views[0].Name)
	assert.Equal(t, []string{"Not Found api"}, r.events)
	assert.Empty(t, b.mutations())
}

func TestImport(t *testing.T) {
	setup := func(t *testing.T) (string, *fakeBackend, *recorder) {
		dir := t.TempDir()
		path := filepath.Join(dir, config.DotFileName)
		require.NoError(t, config.WriteLocalTemplate(path))
		b := newFakeBackend()
		b.put("web", webV1, envfile.Parse("A=1\nB=2"), true)
		b.put("bare", webV2, nil, true)
		return path, b, &recorder{}
	}

	t.Run("writes files and declares stack", func(t *testing.T) {
		path, b, r := setup(t)
		dir := filepath.Dir(path)

		require.NoError(t, New(b, r).Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web"}))

		data, err := os.ReadFile(filepath.Join(dir, "web.compose.yaml"))
		require.NoError(t, err)
		assert.Equal(t, webV1, string(data))
		env, err := envfile.ReadFile(filepath.Join(dir, "web.env"))
		require.NoError(t, err)
		assert.Equal(t, envfile.Parse("A=1\nB=2"), env)

		frag, err := config.LoadFragment(path)
		require.NoError(t, err)
		require.Contains(t, frag.Stacks, "web")
		assert.Equal(t, "web.compose.yaml", frag.Stacks["web"].ComposeFile)
		require.NotNil(t, frag.Stacks["web"].EnvFile)
		assert.Equal(t, "web.env", *frag.Stacks["web"].EnvFile)
		assert.Len(t, r.infos, 3)
		assert.Empty(t, b.mutations())
	})

	t.Run("no env file without remote env", func(t *testing.T) {
		path, b, r := setup(t)

		require.NoError(t, New(b, r).Import(context.Background(), ImportOptions{ConfigPath: path, Name: "bare"}))

		_, err := os.Stat(filepath.Join(filepath.Dir(path), "bare.env"))
		assert.True(t, os.IsNotExist(err))
		frag, err := config.LoadFragment(path)
		require.NoError(t, err)
		assert.Nil(t, frag.Stacks["bare"].EnvFile)
	})

	t.Run("refuses existing compose file", func(t *testing.T) {
		path, b, r := setup(t)
		existing := filepath.Join(filepath.Dir(path), "web.compose.yaml")
		require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

		err := New(b, r).Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web"})

		assert.True(t, errdefs.IsConfig(err))
		data, _ := os.ReadFile(existing)
		assert.Equal(t, "keep", string(data))
	})

	t.Run("refuses declared stack", func(t *testing.T) {
		path, b, r := setup(t)
		e := New(b, r)
		require.NoError(t, e.Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web"}))

		err := e.Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web"})

		assert.True(t, errdefs.IsConfig(err))
		assert.Contains(t, err.Error(), "already declared")
	})

	t.Run("force replaces", func(t *testing.T) {
		path, b, r := setup(t)
		e := New(b, r)
		require.NoError(t, e.Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web"}))
		b.stacks["web"].ComposeContent = webV2

		require.NoError(t, e.Import(context.Background(), ImportOptions{ConfigPath: path, Name: "web", Force: true}))

		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "web.compose.yaml"))
		require.NoError(t, err)
		assert.Equal(t, webV2, string(data))
		manifest, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Len(t, regexp.MustCompile(`(?m)^\[stacks\.web\]$`).FindAllString(string(manifest), -1), 1)
		frag, err := config.LoadFragment(path)
		require.NoError(t, err)
		assert.Equal(t, "web.compose.yaml", frag.Stacks["web"].ComposeFile)
	})

	t.Run("missing remote", func(t *testing.T) {
		path, b, r := setup(t)

		err := New(b, r).Import(context.Background(), ImportOptions{ConfigPath: path, Name: "api"})

		assert.True(t, errdefs.IsNotFound(err))
	})

	t.Run("invalid name", func(t *testing.T) {
		path, b, r := setup(t)

		err := New(b, r).Import(context.Background(), ImportOptions{ConfigPath: path, Name: "../web"})

		assert.True(t, errdefs.IsConfig(err))
		assert.Empty(t, b.calls)
	})
}

func TestValidate(t *testing.T) {
	good := localStack(t, "web", "services:\n  web:\n    image: nginx:${TAG}\n", strPtr("TAG=1.25\n"), true)
	disabled := stacks.Stack{Name: "off", ComposeFile: "missing.yaml", BaseDir: t.TempDir()}

	var lines []string
	report := func(format string, args ...any) {
		lines = append(lines, format)
	}
	require.NoError(t, Validate(context.Background(), []stacks.Stack{good, disabled}, report))
	assert.Len(t, lines, 1)

	bad := localStack(t, "bad", "services: [\n", nil, true)
	err := Validate(context.Background(), []stacks.Stack{bad, good}, nil)
	require.Error(t, err)
	assert.True(t, errdefs.IsConfig(err))
	assert.Contains(t, err.Error(), "stack bad")
}
