package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// maxStderrInError bounds how much tool output ends up in an error message
const maxStderrInError = 2048

// ExecCommandRunner runs native tools with os/exec
type ExecCommandRunner struct {
	logger interfaces.Logger
}

// NewCommandRunner creates a command runner that logs each invocation at debug level
func NewCommandRunner(logger interfaces.Logger) *ExecCommandRunner {
	return &ExecCommandRunner{logger: interfaces.OrNoOp(logger)}
}

// Run executes cmd and waits for it. Stdout and stderr are captured; a non-zero exit
// returns the result together with an error wrapping entities.ErrToolFailed.
func (r *ExecCommandRunner) Run(ctx context.Context, cmd gateways.Command) (*gateways.CommandResult, error) {
	start := time.Now()
	result := &gateways.CommandResult{}

	//nolint:gosec // G204: Tool invocation is intentional; arguments come from the build definition
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		env := os.Environ()
		for key, value := range cmd.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		c.Env = env
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	desc := cmd.Description
	if desc == "" {
		desc = cmd.Name
	}
	r.logger.Debug("Executing", interfaces.F("step", desc), interfaces.F("command", commandLine(cmd)))

	err := c.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		// A killed child also reports an ExitError, so cancellation is checked first
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.ExitCode = -1
			return result, fmt.Errorf("%s interrupted: %w", desc, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("%w: %s exited with code %d: %s",
				entities.ErrToolFailed, desc, result.ExitCode, tail(result.Stderr, maxStderrInError))
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}

	r.logger.Debug("Finished", interfaces.F("step", desc), interfaces.F("duration", result.Duration))
	return result, nil
}

// commandLine renders a command for logs; it is not meant to be shell-safe
func commandLine(cmd gateways.Command) string {
	if len(cmd.Args) == 0 {
		return cmd.Name
	}
	return cmd.Name + " " + strings.Join(cmd.Args, " ")
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
