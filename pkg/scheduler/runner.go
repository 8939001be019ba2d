// Package scheduler drives the external timetable generator as a child process.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Config locates the generator. A zero Timeout leaves the process unbounded.
type Config struct {
	Interpreter string
	Script      string
	WorkDir     string
	Timeout     time.Duration
}

// waitDelay bounds how long output pipes held open by grandchildren delay Wait.
const waitDelay = 5 * time.Second

// Result carries the buffered output of a finished run.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError reports a generator that ran but did not exit cleanly.
type ExitError struct {
	Code     int
	TimedOut bool
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.TimedOut {
		return "scheduler timed out"
	}
	return fmt.Sprintf("scheduler exited with code %d", e.Code)
}

// SpawnError reports a generator that could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start scheduler: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Runner executes `<interpreter> <script> <input>` and waits for it to exit.
type Runner struct {
	cfg Config
}

// NewRunner constructs a runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes the generator against inputPath. Stdout and stderr are buffered in full.
func (r *Runner) Run(ctx context.Context, inputPath string) (*Result, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.cfg.Interpreter, r.cfg.Script, inputPath)
	cmd.Dir = r.cfg.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}
	err := cmd.Wait()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if err == nil || (errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState.Success()) {
		return result, nil
	}

	exitErr := &ExitError{Code: -1, Stdout: result.Stdout, Stderr: result.Stderr}
	var procErr *exec.ExitError
	if errors.As(err, &procErr) {
		exitErr.Code = procErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		exitErr.TimedOut = errors.Is(ctxErr, context.DeadlineExceeded)
	}
	return result, exitErr
}
