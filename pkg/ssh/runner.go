package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Result is the outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs the local ssh client. A non-zero exit is reported through
// Result.ExitCode; the error is reserved for processes that could not be
// started or were cancelled.
type Runner interface {
	Run(ctx context.Context, args []string, stdin io.Reader) (Result, error)
}

// ExecRunner runs Binary through os/exec.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner for the ssh binary found on PATH.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Binary: "ssh"}
}

func (r *ExecRunner) Run(ctx context.Context, args []string, stdin io.Reader) (Result, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = stdin

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("failed to run %s: %w", r.Binary, err)
}
