package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/compose"
	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/stacks"
	"github.com/stack-sync/stack-sync/pkg/state"
)

// explain reports what an update would change: a unified diff of the
// compose content, the services whose image changes and the names of
// changed env vars. Values are never printed since env usually holds
// secrets.
func (e *Engine) explain(ctx context.Context, s stacks.Stack, decl *local, remote *state.Remote) {
	if !state.ComposeEqual(decl.compose, remote.ComposeContent) {
		diff, err := composeDiff(remote.ComposeContent, decl.compose)
		if err != nil {
			zap.L().Debug("Failed to diff compose content", zap.String("stack", s.Name), zap.Error(err))
		} else {
			e.reporter.Diff(s.Name, diff)
		}
		e.serviceChanges(ctx, s, remote)
	}
	if added, changed, removed := envChanges(decl.env, remote.Env); len(added)+len(changed)+len(removed) > 0 {
		e.reporter.EnvChanges(s.Name, added, changed, removed)
	}
}

func composeDiff(remote, local string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimRight(remote, "\n") + "\n"),
		B:        difflib.SplitLines(strings.TrimRight(local, "\n") + "\n"),
		FromFile: "remote",
		ToFile:   "local",
		Context:  3,
	})
}

// serviceChanges loads both sides with compose-go and reports per-service
// image changes. Content that cannot be loaded, for example because it
// needs variables only the target defines, is skipped.
func (e *Engine) serviceChanges(ctx context.Context, s stacks.Stack, remote *state.Remote) {
	envPath, _ := s.EnvPath()
	localProject, err := compose.LoadWithEnv(ctx, s.ComposePath(), envPath, s.Name)
	if err != nil {
		zap.L().Debug("Skipping service summary", zap.String("stack", s.Name), zap.Error(err))
		return
	}
	remoteProject, err := compose.LoadFromContent(ctx, []byte(remote.ComposeContent), s.Name)
	if err != nil {
		zap.L().Debug("Skipping service summary", zap.String("stack", s.Name), zap.Error(err))
		return
	}
	e.reporter.Services(s.Name, state.MergeServices(localProject, remoteProject))
}

// envChanges returns the sorted names added, changed and removed going from
// remote to local.
func envChanges(local, remote []envfile.Var) (added, changed, removed []string) {
	l, r := envfile.Map(local), envfile.Map(remote)
	for name, v := range l {
		rv, ok := r[name]
		switch {
		case !ok:
			added = append(added, name)
		case rv != v:
			changed = append(changed, name)
		}
	}
	for name := range r {
		if _, ok := l[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(changed)
	sort.Strings(removed)
	return added, changed, removed
}
