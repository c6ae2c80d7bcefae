// Package shell runs the few external tools kprotect still depends on.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kompox/kprotect/internal/logging"
)

// Runner executes commands. Attach connects the child to the terminal.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Attach(ctx context.Context, name string, args ...string) error
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a Runner attached to the process stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Output runs the command and returns its stdout. Stderr is included in the error.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger := logging.FromContext(ctx)
	logger.Debug(ctx, "exec", "cmd", commandLine(name, args))
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Attach runs the command with the runner stdio, for interactive logins.
func (r *ExecRunner) Attach(ctx context.Context, name string, args ...string) error {
	logger := logging.FromContext(ctx)
	logger.Info(ctx, "exec", "cmd", commandLine(name, args))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = r.Stdin, r.Stdout, r.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// MissingTools returns the names in tools that are not found on PATH.
func MissingTools(tools ...string) []string {
	var missing []string
	for _, t := range tools {
		if _, err := exec.LookPath(t); err != nil {
			missing = append(missing, t)
		}
	}
	return missing
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
