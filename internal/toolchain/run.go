package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"dcmcanon/internal/faults"
)

const (
	stderrTailLimit = 4 << 10
	waitDelay       = 5 * time.Second
)

var commandContext = exec.CommandContext

// Attempt records one tier invocation.
type Attempt struct {
	Tool     string
	ExitCode int
	Success  bool
	TimedOut bool
	Duration time.Duration
	// Stderr holds the trailing bytes the tool wrote to stderr.
	Stderr string
	Err    error
}

// Run invokes the tier with input and output substituted into its argument
// template. Stdout is discarded. A tool that cannot be started, exits outside
// the success set, or exceeds its timeout yields an unsuccessful attempt.
func (s Spec) Run(ctx context.Context, input, output string) Attempt {
	attempt := Attempt{Tool: s.Name, ExitCode: -1}
	if err := ctx.Err(); err != nil {
		attempt.Err = faults.Wrap(faults.ErrCanceled, "toolchain", s.Name, "run canceled before start", err)
		return attempt
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := commandContext(runCtx, s.Command, s.Argv(input, output)...) //nolint:gosec
	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	attempt.Duration = time.Since(start)
	attempt.Stderr = strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		attempt.ExitCode = 0
	case errors.As(err, &exitErr):
		attempt.ExitCode = exitErr.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		attempt.Err = faults.Wrap(faults.ErrCanceled, "toolchain", s.Name, "run canceled", ctx.Err())
	case s.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		attempt.TimedOut = true
		attempt.Err = faults.Wrap(faults.ErrExternalTool, "toolchain", s.Name, fmt.Sprintf("timed out after %s", s.Timeout), nil)
	case err != nil && exitErr == nil:
		attempt.Err = faults.Wrap(faults.ErrExternalTool, "toolchain", s.Name, "start failed", err)
	case !s.Succeeded(attempt.ExitCode):
		attempt.Err = faults.Wrap(faults.ErrExternalTool, "toolchain", s.Name, fmt.Sprintf("exit status %d", attempt.ExitCode), nil)
	default:
		attempt.Success = true
	}
	return attempt
}

// killProcessGroup starts the tool in its own process group and makes
// cancellation kill the whole group, including children forked by wrapper
// scripts.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
