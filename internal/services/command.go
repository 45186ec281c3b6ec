package services

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// outputTailBytes bounds the tool output kept on a ToolError.
const outputTailBytes = 2048

// CommandRunner executes a binary and returns its combined stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RunCommand is the default CommandRunner.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.WaitDelay = 5 * time.Second
	return cmd.CombinedOutput()
}

// RunTool invokes binary through run under an optional timeout. A failed
// invocation is returned as a *ToolError carrying the exit code and the tail
// of the tool's output.
func RunTool(ctx context.Context, run CommandRunner, timeout time.Duration, tool, binary string, args ...string) ([]byte, error) {
	if run == nil {
		run = RunCommand
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	output, err := run(ctx, binary, args...)
	if err == nil {
		return output, nil
	}
	toolErr := &ToolError{
		Tool:     tool,
		Args:     append([]string(nil), args...),
		ExitCode: -1,
		Output:   TailOutput(output, outputTailBytes),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		toolErr.Err = errors.Join(err, ctxErr)
	}
	return output, toolErr
}
