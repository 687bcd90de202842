// Package ssh implements the stack backend for a docker host reached with
// the local ssh client. Every operation runs one ssh process executing a
// docker compose command in the stack directory.
package ssh

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/config"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// Remote file names inside a stack directory.
const (
	ComposeFileName = "compose.yaml"
	EnvFileName     = ".env"
)

// Client runs commands on one docker host.
type Client struct {
	host    string
	hostDir string
	args    []string // ssh arguments up to and including the destination
	runner  Runner
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the exec based runner.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithTimeout bounds every remote command. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a client for cfg. It fails when ssh_options cannot be
// split into arguments.
func NewClient(cfg config.SSH, opts ...Option) (*Client, error) {
	var args []string
	if cfg.Key != "" {
		args = append(args, "-i", cfg.Key)
	}
	if cfg.Options != "" {
		extra, err := shellwords.Parse(cfg.Options)
		if err != nil {
			return nil, &errdefs.ConfigError{Key: "ssh_options", Msg: "failed to parse ssh_options", Err: err}
		}
		args = append(args, extra...)
	}
	args = append(args, destination(cfg.User, cfg.Host))

	c := &Client{
		host:    cfg.Host,
		hostDir: cfg.HostDir,
		args:    args,
		runner:  NewExecRunner(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func destination(user, host string) string {
	if user == "" {
		return host
	}
	return user + "@" + host
}

// StackDir is the remote directory of stack name.
func (c *Client) StackDir(name string) string {
	return path.Join(c.hostDir, name)
}

// ComposePath is the remote compose file of stack name.
func (c *Client) ComposePath(name string) string {
	return path.Join(c.StackDir(name), ComposeFileName)
}

// EnvPath is the remote env file of stack name.
func (c *Client) EnvPath(name string) string {
	return path.Join(c.StackDir(name), EnvFileName)
}

// exec runs command on the host and returns its result regardless of the
// exit code. op names the capability for error messages.
func (c *Client) exec(ctx context.Context, op, command string, stdin io.Reader) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.args...), command)
	log := zap.L().With(zap.String("host", c.host), zap.String("command", command))
	start := time.Now()
	res, err := c.runner.Run(ctx, args, stdin)
	if err != nil {
		log.Debug("ssh command failed to run", zap.Error(err))
		return res, &errdefs.BackendError{Op: op, Target: c.host, Command: command, ExitCode: -1, Err: err}
	}
	log.Debug("ssh command", zap.Int("exit", res.ExitCode), zap.Duration("took", time.Since(start)))
	return res, nil
}

// run is exec with any non-zero exit turned into a BackendError.
func (c *Client) run(ctx context.Context, op, command string, stdin io.Reader) (string, error) {
	res, err := c.exec(ctx, op, command, stdin)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &errdefs.BackendError{
			Op:       op,
			Target:   c.host,
			Command:  command,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(res.Stderr),
		}
	}
	return res.Stdout, nil
}

// inDir prefixes command with a cd into the stack directory.
func (c *Client) inDir(name, command string) string {
	return fmt.Sprintf("cd %s && %s", shellescape.Quote(c.StackDir(name)), command)
}

// FileExists runs test -f. Exit status 1 means absent; any other failure,
// including ssh's own 255, is an error.
func (c *Client) FileExists(ctx context.Context, op, remotePath string) (bool, error) {
	command := "test -f " + shellescape.Quote(remotePath)
	res, err := c.exec(ctx, op, command, nil)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	}
	return false, &errdefs.BackendError{
		Op:       op,
		Target:   c.host,
		Command:  command,
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(res.Stderr),
	}
}

// ReadFile returns the content of remotePath.
func (c *Client) ReadFile(ctx context.Context, op, remotePath string) (string, error) {
	return c.run(ctx, op, "cat "+shellescape.Quote(remotePath), nil)
}

// ReadOptionalFile returns the content of remotePath, or "" when it does not
// exist.
func (c *Client) ReadOptionalFile(ctx context.Context, op, remotePath string) (string, error) {
	quoted := shellescape.Quote(remotePath)
	return c.run(ctx, op, fmt.Sprintf("if [ -f %s ]; then cat %s; fi", quoted, quoted), nil)
}

// WriteFile streams content into remotePath through the process stdin.
func (c *Client) WriteFile(ctx context.Context, op, remotePath, content string) error {
	_, err := c.run(ctx, op, "cat > "+shellescape.Quote(remotePath), strings.NewReader(content))
	return err
}

// MkdirAll creates dir and its parents.
func (c *Client) MkdirAll(ctx context.Context, op, dir string) error {
	_, err := c.run(ctx, op, "mkdir -p "+shellescape.Quote(dir), nil)
	return err
}

// Compose runs a docker compose command line in the stack directory.
func (c *Client) Compose(ctx context.Context, op, name, command string) (string, error) {
	return c.run(ctx, op, c.inDir(name, command), nil)
}
