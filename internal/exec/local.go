package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// Command describes a single process invocation. Arguments are passed
// directly to the binary; no shell is involved.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin io.Reader
	Env   []string // appended to the current environment
}

// String renders the command for log output.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result captures everything a finished process produced.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Diagnostic returns the process's own explanation of what happened:
// trimmed stderr, or stdout when stderr is empty.
func (r Result) Diagnostic() string {
	if msg := strings.TrimSpace(string(r.Stderr)); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(r.Stdout))
}

// Runner runs external processes. The key generator, doctor checks, and
// connection tests take a Runner so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LocalRunner runs commands on this machine.
//
// A non-zero exit is not an error: the exit code is reported in Result.
// An error is returned only when the process could not be started or the
// context ended first; in the latter case the error wraps ctx.Err().
type LocalRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the
	// process is killed on context cancellation. Zero means 2s.
	WaitDelay time.Duration
}

// NewLocalRunner returns a LocalRunner with default settings.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// Run executes cmd and captures stdout, stderr, and the exit code.
func (r *LocalRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	command := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		command.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		command.Env = append(command.Environ(), cmd.Env...)
	}
	command.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	command.WaitDelay = r.WaitDelay
	if command.WaitDelay == 0 {
		command.WaitDelay = 2 * time.Second
	}

	start := time.Now()
	runErr := command.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, errors.WrapWithCode(ctxErr, errors.ErrExec,
			fmt.Sprintf("'%s' did not finish in time", cmd.Name),
			"")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, errors.WrapWithCode(runErr, errors.ErrExec,
			fmt.Sprintf("Couldn't run '%s'", cmd.Name),
			"Make sure the command exists and is on your PATH.")
	}

	return res, nil
}

// LookPath reports the absolute path of a binary on PATH.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// IsNotFound reports whether err means the binary does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
