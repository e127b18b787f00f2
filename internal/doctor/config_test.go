package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
)

func TestConfigCheck(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GITACCT_CONFIG", "")

	t.Run("no file uses defaults", func(t *testing.T) {
		result := (&ConfigCheck{}).Run()
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "defaults")
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("keygen:\n  type: ed25519\n"), 0600))

		result := (&ConfigCheck{ConfigPath: path}).Run()
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, path)
	})

	t.Run("invalid settings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("keygen:\n  type: dsa\n"), 0600))

		result := (&ConfigCheck{ConfigPath: path}).Run()
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Suggestion, "dsa")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		result := (&ConfigCheck{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")}).Run()
		assert.Equal(t, StatusFail, result.Status)
	})
}

func TestNewChecks(t *testing.T) {
	checks := NewChecks(Options{Runner: &exec.FakeRunner{}})
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"config", "tool_git", "tool_ssh", "tool_ssh-keygen", "ssh_agent", "account_keys"}, names)

	checks = NewChecks(Options{Synchronizer: sshconfig.New(filepath.Join(t.TempDir(), "config"))})
	assert.Equal(t, "ssh_config", checks[len(checks)-1].Name())
}

func TestProbeTool(t *testing.T) {
	runner := &exec.FakeRunner{Handler: func(_ context.Context, cmd exec.Command) (exec.Result, error) {
		return exec.Result{Stderr: []byte("OpenSSH_9.6p1, OpenSSL 3.0.13\nextra")}, nil
	}}

	st := ProbeTool(context.Background(), runner, Tool{Name: "sh", VersionArgs: []string{"-V"}})
	assert.True(t, st.Installed)
	assert.NotEmpty(t, st.Path)
	assert.Equal(t, "OpenSSH_9.6p1, OpenSSL 3.0.13", st.Version)

	st = ProbeTool(context.Background(), runner, Tool{Name: "gitacct-no-such-tool"})
	assert.False(t, st.Installed)
}

func TestToolCheck(t *testing.T) {
	missing := &ToolCheck{Tool: Tool{Name: "gitacct-no-such-tool", Purpose: "nothing"}}
	result := missing.Run()
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Suggestion, "nothing")

	present := &ToolCheck{Tool: Tool{Name: "sh"}}
	assert.Equal(t, StatusPass, present.Run().Status)
}

func TestCheckPrerequisites(t *testing.T) {
	p := CheckPrerequisites(context.Background(), &exec.FakeRunner{})

	assert.NotEmpty(t, p.Details.Platform)
	assert.NotEmpty(t, p.Details.GoVersion)
	assert.Equal(t, p.Git && p.SSH && p.SSHKeygen, p.OK())
}
