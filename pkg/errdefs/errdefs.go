// Package errdefs defines the error types shared by the config resolver,
// the backends and the reconciliation engine.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a problem with the layered configuration: a missing
// file, a parse failure, a missing required key or an unknown stack.
type ConfigError struct {
	Path string // config file involved, if any
	Key  string // offending key, if any
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFoundError is returned when an operation requires a stack that does not
// exist on the remote target.
type NotFoundError struct {
	Name   string
	Target string
}

func (e *NotFoundError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("stack %q not found", e.Name)
	}
	return fmt.Sprintf("stack %q not found on %s", e.Name, e.Target)
}

// BackendError wraps a transport level failure: a non-2xx HTTP response or a
// remote shell command that exited non-zero.
type BackendError struct {
	Op     string // capability name, e.g. "create"
	Target string // host the operation was sent to

	// HTTP backends.
	Method string
	Path   string
	Status int

	// Remote shell backends.
	Command  string
	ExitCode int
	Stderr   string

	Err error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s failed", e.Op, e.Target)
	switch {
	case e.Method != "":
		fmt.Fprintf(&b, ": %s %s", e.Method, e.Path)
		if e.Status != 0 {
			fmt.Fprintf(&b, " (HTTP %d)", e.Status)
		}
	case e.Command != "":
		fmt.Fprintf(&b, ": %q (exit %d)", e.Command, e.ExitCode)
		if e.Stderr != "" {
			fmt.Fprintf(&b, ": %s", e.Stderr)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *BackendError) Unwrap() error { return e.Err }

// IOError reports a local file read or write failure.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Configf builds a ConfigError with a formatted message.
func Configf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsBackend reports whether err is or wraps a BackendError.
func IsBackend(err error) bool {
	var target *BackendError
	return errors.As(err, &target)
}

// IsIO reports whether err is or wraps an IOError.
func IsIO(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}
