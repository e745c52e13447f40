// Package execx runs the short-lived OS audio tools (aplay, amixer) the core
// depends on, behind an interface so parsing can be tested without them.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 5 * time.Second

// Output is what a tool wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Runner runs a tool to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Output, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Output, error) {
	return f(ctx, name, args...)
}

// ExitError is returned when the tool ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// OS runs tools with os/exec.
type OS struct {
	Timeout time.Duration
}

// Run executes name with args and captures both streams. A missing binary
// is reported as errdefs.ErrToolUnavailable.
func (r OS) Run(ctx context.Context, name string, args ...string) (Output, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return out, fmt.Errorf("%w: %s not found", errdefs.ErrToolUnavailable, name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{
			Command:  name + " " + strings.Join(args, " "),
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}
	return out, fmt.Errorf("%s failed: %w", name, err)
}
