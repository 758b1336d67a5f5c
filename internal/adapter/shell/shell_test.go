package shell

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out bytes.Buffer
	r := New(t.TempDir(), slog.Default())
	r.Stdout = &out
	r.Stderr = &out
	return r, &out
}

func TestWithPythonPath(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		want string
	}{
		{"unset", []string{"HOME=/root"}, "PYTHONPATH=/work"},
		{"empty", []string{"PYTHONPATH="}, "PYTHONPATH=/work"},
		{"existing", []string{"PYTHONPATH=/opt/lib", "HOME=/root"}, "PYTHONPATH=/opt/lib" + string(os.PathListSeparator) + "/work"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := WithPythonPath(tt.env, "/work")
			assert.Contains(t, env, tt.want)
			count := 0
			for _, kv := range env {
				if len(kv) >= 11 && kv[:11] == "PYTHONPATH=" {
					count++
				}
			}
			assert.Equal(t, 1, count)
		})
	}
}

func TestRunner_Run_PassesPythonPath(t *testing.T) {
	r, out := newTestRunner(t)
	require.NoError(t, r.Run(context.Background(), Options{}, "sh", "-c", `printf %s "$PYTHONPATH"`))
	assert.Contains(t, out.String(), r.Dir)
}

func TestRunner_Run_ExitCodeUnchanged(t *testing.T) {
	r, _ := newTestRunner(t)
	err := r.Run(context.Background(), Options{}, "sh", "-c", "exit 3")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestRunner_Run_DiscardStdout(t *testing.T) {
	r, out := newTestRunner(t)
	require.NoError(t, r.Run(context.Background(), Options{DiscardStdout: true}, "sh", "-c", "echo hidden"))
	assert.Empty(t, out.String())
}

func TestRunner_Run_Subdirectory(t *testing.T) {
	r, out := newTestRunner(t)
	require.NoError(t, os.Mkdir(filepath.Join(r.Dir, "slides"), 0o755))
	require.NoError(t, r.Run(context.Background(), Options{Dir: "slides"}, "sh", "-c", "pwd"))
	assert.Contains(t, out.String(), "slides")
}

func TestRunner_Run_NotFound(t *testing.T) {
	r, _ := newTestRunner(t)
	err := r.Run(context.Background(), Options{}, "definitely-not-a-command-xyz")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 127, nf.ExitCode())
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestRunner_Notebooks(t *testing.T) {
	r, out := newTestRunner(t)
	dir := filepath.Join(r.Dir, "notebooks")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for _, name := range []string{"b.ipynb", "a.ipynb", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	// A stand-in for jupyter that records its arguments on stderr and prints to stdout.
	fake := filepath.Join(r.Dir, "fake-jupyter")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho stdout-noise\necho \"$@\" >&2\n"), 0o755))

	files, err := r.Notebooks(context.Background(), fake, "notebooks/*.ipynb")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.ipynb"), filepath.Join(dir, "b.ipynb")}, files)
	assert.NotContains(t, out.String(), "stdout-noise")
	assert.Contains(t, out.String(), "nbconvert --to notebook --execute --stdout")
}

func TestRunner_Notebooks_NoMatch(t *testing.T) {
	r, _ := newTestRunner(t)
	files, err := r.Notebooks(context.Background(), "jupyter", "notebooks/*.ipynb")
	require.NoError(t, err)
	assert.Empty(t, files)
}
