package gitconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
)

// GitDir returns repo/.git, failing with NOT_GIT_REPO when it isn't a
// directory.
func GitDir(repo string) (string, error) {
	dir := filepath.Join(repo, ".git")
	if !fsutil.IsDir(dir) {
		return "", errors.New(errors.ErrNotGitRepo,
			fmt.Sprintf("%s isn't a git repository", repo),
			"Run 'git init' there, or point the project at the repository root.")
	}
	return dir, nil
}

// ConfigPath returns the path of repo's local config file.
func ConfigPath(repo string) string {
	return filepath.Join(repo, ".git", "config")
}

// Load reads and parses repo's local config. A missing config file parses
// as empty.
func Load(repo string) (*File, error) {
	if _, err := GitDir(repo); err != nil {
		return nil, err
	}

	path := ConfigPath(repo)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't read %s", path),
			"Check the file's permissions.")
	}

	f, err := Parse(data)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrMalformedConfig,
			fmt.Sprintf("%s isn't valid git config", path),
			"Fix it by hand or check it with: git config --file "+path+" --list")
	}
	return f, nil
}

// Save writes f to repo's local config atomically.
func Save(repo string, f *File) error {
	path := ConfigPath(repo)
	if err := fsutil.WriteFileAtomic(path, f.Bytes(), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't write %s", path),
			"Check that the .git directory is writable.")
	}
	return nil
}

// SetUser sets user.name and user.email in repo's local config. Other keys
// in [user], such as signingkey, and every other section are kept.
func SetUser(repo, name, email string) error {
	f, err := Load(repo)
	if err != nil {
		return err
	}
	f.SetUser(name, email)
	return Save(repo, f)
}

// SetUser sets user.name and user.email.
func (f *File) SetUser(name, email string) {
	f.Set("user", "", "name", name)
	f.Set("user", "", "email", email)
}

// ReadUser returns user.name and user.email from repo's local config.
// Missing keys come back empty.
func ReadUser(repo string) (string, string, error) {
	f, err := Load(repo)
	if err != nil {
		return "", "", err
	}
	name, _ := f.Get("user", "", "name")
	email, _ := f.Get("user", "", "email")
	return name, email, nil
}

// Remote is a named remote and its fetch URL.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Remotes lists the remotes that have a url, in config order.
func Remotes(repo string) ([]Remote, error) {
	f, err := Load(repo)
	if err != nil {
		return nil, err
	}
	return f.Remotes(), nil
}

// Remotes lists the remotes that have a url, in file order.
func (f *File) Remotes() []Remote {
	var out []Remote
	for _, name := range f.Subsections("remote") {
		if url, ok := f.Get("remote", name, "url"); ok {
			out = append(out, Remote{Name: name, URL: url})
		}
	}
	return out
}

// RemoteURL returns the url of the named remote, or "" when it isn't set.
func RemoteURL(repo, remote string) (string, error) {
	f, err := Load(repo)
	if err != nil {
		return "", err
	}
	url, _ := f.Get("remote", remote, "url")
	return url, nil
}

// SetRemoteURL sets remote.<name>.url, adding the default fetch refspec
// when the remote section is new.
func SetRemoteURL(repo, remote, url string) error {
	f, err := Load(repo)
	if err != nil {
		return err
	}
	f.SetRemoteURL(remote, url)
	return Save(repo, f)
}

// SetRemoteURL sets remote.<name>.url, adding the default fetch refspec
// when the remote section is new.
func (f *File) SetRemoteURL(remote, url string) {
	isNew := !f.HasSection("remote", remote)
	f.Set("remote", remote, "url", url)
	if isNew {
		f.Set("remote", remote, "fetch", fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))
	}
}
