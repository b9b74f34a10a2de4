package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"xcmcp/pkg/logging"
)

const waitDelay = 2 * time.Second

// Command is one external toolchain invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string   // Working directory; empty means the process cwd
	Env     []string // Extra KEY=VALUE pairs appended to the process environment
}

// CommandResult captures the outcome of a command that ran to completion.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandExecutor runs external commands. A non-zero exit status is not an
// error; errors are reserved for commands that could not run at all.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd Command) (CommandResult, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// NewExecExecutor returns the os/exec backed executor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.
func (e *ExecExecutor) Execute(ctx context.Context, cmd Command) (CommandResult, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	// Children that inherit the output pipes must not hold Run open after cancellation.
	c.WaitDelay = waitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	c.Stderr = &stderrBuf

	start := time.Now()
	runErr := c.Run()
	result := CommandResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			logging.Debug("Toolexec", "%s exited with status %d after %s", cmd.Program, result.ExitCode, result.Duration)
			return result, nil
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("%s did not finish: %w", cmd.Program, ctx.Err())
		}
		return result, fmt.Errorf("failed to run %s: %w", cmd.Program, runErr)
	}

	logging.Debug("Toolexec", "%s finished in %s", cmd.Program, result.Duration)
	return result, nil
}
