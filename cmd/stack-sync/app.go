package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stack-sync/stack-sync/pkg/backend"
	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/engine"
	"github.com/stack-sync/stack-sync/pkg/portainer"
	"github.com/stack-sync/stack-sync/pkg/reporter"
	"github.com/stack-sync/stack-sync/pkg/ssh"
	"github.com/stack-sync/stack-sync/pkg/stacks"
)

// app holds what every remote command needs: the resolved config, the
// selected stacks and an engine bound to the configured backend.
type app struct {
	resolved *config.Resolved
	stacks   []stacks.Stack
	reporter *reporter.Terminal
	engine   *engine.Engine
}

// loadApp resolves the config chain from the -C path and selects names, or
// every declared stack when names is empty.
func loadApp(cmd *cobra.Command, names []string) (*app, error) {
	res, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	list, err := stacks.Resolve(res, names)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(res.Global, list)
	if err != nil {
		return nil, err
	}
	r := reporter.New(cmd.OutOrStdout())
	return &app{
		resolved: res,
		stacks:   list,
		reporter: r,
		engine:   engine.New(b, r),
	}, nil
}

// newBackend builds the backend for global. Portainer stacks are created on
// their own endpoint when they declare one.
func newBackend(global config.GlobalConfig, list []stacks.Stack) (backend.Backend, error) {
	switch g := global.(type) {
	case config.Portainer:
		client := portainer.NewClient(g.Host, g.APIKey, portainer.WithTimeout(timeout))
		b := portainer.NewBackend(client, g.EndpointID)
		for _, s := range list {
			b.SetEndpoint(s.Name, s.EndpointID)
		}
		return b, nil
	case config.SSH:
		client, err := ssh.NewClient(g, ssh.WithTimeout(timeout))
		if err != nil {
			return nil, err
		}
		return ssh.NewBackend(client), nil
	}
	return nil, fmt.Errorf("unsupported config type %T", global)
}

func (a *app) options() engine.Options {
	return engine.Options{Verbose: verbose}
}
