package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"work/api/.git",
		"work/api/vendor/nested/.git", // inside a repo, not reported
		"personal/blog/.git",
		"personal/notes",
		".cache/tool/.git", // dot-directory, skipped
		"deep/a/b/c/.git",
	)

	repos, err := Scan(root, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "deep/a/b/c"),
		filepath.Join(root, "personal/blog"),
		filepath.Join(root, "work/api"),
	}, repos)
}

func TestScan_RootIsRepo(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, ".git", "sub/.git")

	repos, err := Scan(root, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, repos)
}

func TestScan_MaxDepth(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/.git", "b/c/d/.git")

	repos, err := Scan(root, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a")}, repos)
}

func TestScan_NotADirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), 0)
	assert.True(t, errors.IsCode(err, errors.ErrInvalid))
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name   string
		result exec.Result
		ok     bool
	}{
		{
			name:   "github greeting with exit 1",
			result: exec.Result{ExitCode: 1, Stderr: []byte("Hi me! You've successfully authenticated, but GitHub does not provide shell access.")},
			ok:     true,
		},
		{
			name:   "gitlab welcome",
			result: exec.Result{ExitCode: 0, Stdout: []byte("Welcome to GitLab, @me!")},
			ok:     true,
		},
		{
			name:   "denied",
			result: exec.Result{ExitCode: 255, Stderr: []byte("git@github.com: Permission denied (publickey).")},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &exec.FakeRunner{Handler: func(ctx context.Context, cmd exec.Command) (exec.Result, error) {
				return tt.result, nil
			}}

			res, err := TestConnection(context.Background(), runner, "work")
			require.NoError(t, err)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, "work", res.Alias)

			call := runner.Calls[0]
			assert.Equal(t, "ssh", call.Name)
			assert.Contains(t, call.Args, "BatchMode=yes")
			assert.Equal(t, "git@work", call.Args[len(call.Args)-1])
		})
	}
}

func TestTestConnection_RunnerError(t *testing.T) {
	runner := &exec.FakeRunner{Handler: func(ctx context.Context, cmd exec.Command) (exec.Result, error) {
		return exec.Result{ExitCode: -1, Duration: time.Second}, errors.New(errors.ErrExec, "boom", "")
	}}

	_, err := TestConnection(context.Background(), runner, "work")
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}
