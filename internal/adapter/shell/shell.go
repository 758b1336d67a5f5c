// Package shell runs the external tools behind command targets: the Python
// test runner, Jupyter, the linter and the slides compiler.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Runner executes commands from a fixed working directory with PYTHONPATH
// extended by that directory.
type Runner struct {
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	logger *slog.Logger
}

// New creates a Runner rooted at dir using the process environment and
// standard streams.
func New(dir string, logger *slog.Logger) *Runner {
	return &Runner{
		Dir:    dir,
		Env:    WithPythonPath(os.Environ(), dir),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// WithPythonPath returns env with dir appended to PYTHONPATH, or PYTHONPATH set
// to dir when it is unset or empty.
func WithPythonPath(env []string, dir string) []string {
	out := make([]string, 0, len(env)+1)
	value := dir
	for _, kv := range env {
		if existing, ok := strings.CutPrefix(kv, "PYTHONPATH="); ok {
			if existing != "" {
				value = existing + string(os.PathListSeparator) + dir
			}
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PYTHONPATH="+value)
}

// Options adjust a single invocation.
type Options struct {
	Dir           string // relative to the runner's directory; empty means the runner's directory
	Interactive   bool   // attach stdin
	DiscardStdout bool
}

// Run executes argv and returns an error wrapping *exec.ExitError on a
// non-zero exit status.
func (r *Runner) Run(ctx context.Context, opts Options, argv ...string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
		if !filepath.IsAbs(opts.Dir) {
			cmd.Dir = filepath.Join(r.Dir, opts.Dir)
		}
	}
	cmd.Env = r.Env
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if opts.DiscardStdout {
		cmd.Stdout = io.Discard
	}
	if opts.Interactive {
		cmd.Stdin = r.Stdin
	}

	r.logger.Info("running command", "command", strings.Join(argv, " "), "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &NotFoundError{Name: argv[0], Err: err}
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

// Notebooks executes every notebook matching pattern with nbconvert in a
// single invocation, discarding the rendered output. It returns the matched
// files; no match is not an error.
func (r *Runner) Notebooks(ctx context.Context, jupyter, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(r.Dir, pattern)
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("notebook pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		r.logger.Warn("no notebooks matched", "pattern", pattern)
		return nil, nil
	}
	sort.Strings(files)

	argv := append([]string{jupyter, "nbconvert", "--to", "notebook", "--execute", "--stdout"}, files...)
	return files, r.Run(ctx, Options{DiscardStdout: true}, argv...)
}

// NotFoundError reports a missing executable with the shell's status 127.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ExitCode matches the status a POSIX shell reports for an unknown command.
func (e *NotFoundError) ExitCode() int { return 127 }
