package gitconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepo creates a directory with a .git dir and optional config content.
func newRepo(t *testing.T, config string) string {
	t.Helper()
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0755))
	if config != "" {
		require.NoError(t, os.WriteFile(ConfigPath(repo), []byte(config), 0644))
	}
	return repo
}

func readConfig(t *testing.T, repo string) string {
	t.Helper()
	data, err := os.ReadFile(ConfigPath(repo))
	require.NoError(t, err)
	return string(data)
}

func TestSetUser_PreservesSigningKey(t *testing.T) {
	repo := newRepo(t, sample)

	require.NoError(t, SetUser(repo, "Work Me", "w@x.com"))

	got := readConfig(t, repo)
	assert.Contains(t, got, "\tsigningkey = ABCDEF\n")
	assert.Contains(t, got, "[core]\n\trepositoryformatversion = 0\n")
	assert.Contains(t, got, "[remote \"origin\"]\n\turl = git@github.com:me/repo.git\n")

	name, email, err := ReadUser(repo)
	require.NoError(t, err)
	assert.Equal(t, "Work Me", name)
	assert.Equal(t, "w@x.com", email)
}

func TestSetUser_AppendsUserSection(t *testing.T) {
	repo := newRepo(t, "[core]\n\tbare = false\n")

	require.NoError(t, SetUser(repo, "N", "e@x"))
	assert.Equal(t, "[core]\n\tbare = false\n[user]\n\tname = N\n\temail = e@x\n", readConfig(t, repo))
}

func TestSetUser_MissingConfigFile(t *testing.T) {
	repo := newRepo(t, "")

	require.NoError(t, SetUser(repo, "N", "e@x"))
	assert.Equal(t, "[user]\n\tname = N\n\temail = e@x\n", readConfig(t, repo))
}

func TestSetUser_NotAGitRepo(t *testing.T) {
	repo := t.TempDir()

	err := SetUser(repo, "N", "e@x")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotGitRepo))
	assert.Contains(t, err.Error(), repo)

	assert.NoDirExists(t, filepath.Join(repo, ".git"))
	entries, err := os.ReadDir(repo)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be created")
}

func TestSetUser_GitFileIsNotADirectory(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".git"), []byte("gitdir: elsewhere\n"), 0644))

	err := SetUser(repo, "N", "e@x")
	assert.True(t, errors.IsCode(err, errors.ErrNotGitRepo))
}

func TestSetUser_MalformedConfig(t *testing.T) {
	bad := "name = orphan\n[user]\n\tname = x\n"
	repo := newRepo(t, bad)

	err := SetUser(repo, "N", "e@x")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrMalformedConfig))
	assert.Contains(t, err.Error(), "line 1")
	assert.Equal(t, bad, readConfig(t, repo), "malformed file must be left alone")
}

func TestSetUser_EntryOnHeaderLine(t *testing.T) {
	repo := newRepo(t, "[core] bare = false\n[user] name = Old\n\tsigningkey = ABC\n")

	require.NoError(t, SetUser(repo, "New", "new@x.com"))
	assert.Equal(t, "[core] bare = false\n[user] name = New\n\tsigningkey = ABC\n\temail = new@x.com\n",
		readConfig(t, repo))

	name, email, err := ReadUser(repo)
	require.NoError(t, err)
	assert.Equal(t, "New", name)
	assert.Equal(t, "new@x.com", email)
}

func TestReadUser_Empty(t *testing.T) {
	repo := newRepo(t, "[core]\n")
	name, email, err := ReadUser(repo)
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Empty(t, email)
}

func TestRemotes(t *testing.T) {
	repo := newRepo(t, sample+"[remote \"upstream\"]\n\turl = https://github.com/org/repo.git\n[remote \"broken\"]\n\tfetch = x\n")

	remotes, err := Remotes(repo)
	require.NoError(t, err)
	assert.Equal(t, []Remote{
		{Name: "origin", URL: "git@github.com:me/repo.git"},
		{Name: "upstream", URL: "https://github.com/org/repo.git"},
	}, remotes)

	url, err := RemoteURL(repo, "upstream")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/org/repo.git", url)

	url, err = RemoteURL(repo, "missing")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestSetRemoteURL(t *testing.T) {
	repo := newRepo(t, sample)

	require.NoError(t, SetRemoteURL(repo, "origin", "git@work:me/repo.git"))
	got := readConfig(t, repo)
	assert.Contains(t, got, "[remote \"origin\"]\n\turl = git@work:me/repo.git\n\tfetch = +refs/heads/*:refs/remotes/origin/*\n")
	assert.Equal(t, 1, strings.Count(got, "fetch ="), "existing remote keeps its single refspec")

	require.NoError(t, SetRemoteURL(repo, "mirror", "git@work:me/mirror.git"))
	got = readConfig(t, repo)
	assert.True(t, strings.HasSuffix(got, "[remote \"mirror\"]\n\turl = git@work:me/mirror.git\n\tfetch = +refs/heads/*:refs/remotes/mirror/*\n"))
}

func TestSetUser_ReadableByGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := newRepo(t, sample)
	require.NoError(t, SetUser(repo, `Quote "Me" #1`, "q@x.com"))

	res, err := exec.NewLocalRunner().Run(context.Background(), exec.Command{
		Name: "git",
		Args: []string{"config", "--file", ConfigPath(repo), "--get", "user.name"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode, res.Diagnostic())
	assert.Equal(t, `Quote "Me" #1`, strings.TrimSpace(string(res.Stdout)))
}
