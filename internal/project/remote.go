package project

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// RemoteTarget is the host and repository path a remote URL points at.
type RemoteTarget struct {
	User string
	Host string
	Path string // owner/repo, without .git
}

// ParseRemoteURL understands scp-style (git@host:owner/repo.git), ssh://,
// and http(s):// remotes.
func ParseRemoteURL(raw string) (RemoteTarget, error) {
	raw = strings.TrimSpace(raw)
	invalid := func(reason string) error {
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("Can't use remote URL %q: %s", raw, reason),
			"Use git@github.com:owner/repo.git or https://github.com/owner/repo.git")
	}
	if raw == "" {
		return RemoteTarget{}, invalid("it's empty")
	}

	var t RemoteTarget
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return RemoteTarget{}, invalid(err.Error())
		}
		switch u.Scheme {
		case "ssh", "git+ssh", "http", "https":
		default:
			return RemoteTarget{}, invalid("unsupported scheme " + u.Scheme)
		}
		if u.User != nil && (u.Scheme == "ssh" || u.Scheme == "git+ssh") {
			t.User = u.User.Username()
		}
		t.Host = u.Hostname()
		t.Path = u.Path
	} else {
		colon := strings.IndexByte(raw, ':')
		if colon <= 0 || strings.Contains(raw[:colon], "/") {
			return RemoteTarget{}, invalid("not an scp-style or URL remote")
		}
		hostPart := raw[:colon]
		if at := strings.LastIndexByte(hostPart, '@'); at >= 0 {
			t.User, hostPart = hostPart[:at], hostPart[at+1:]
		}
		t.Host = hostPart
		t.Path = raw[colon+1:]
	}

	t.Path = strings.TrimSuffix(strings.Trim(t.Path, "/"), ".git")
	if t.Host == "" {
		return RemoteTarget{}, invalid("no host")
	}
	if t.Path == "" || !strings.Contains(t.Path, "/") {
		return RemoteTarget{}, invalid("expected an owner/repo path")
	}
	return t, nil
}

// RewriteRemoteURL points a remote at an SSH host alias, keeping the
// repository path: https://github.com/me/app becomes git@work:me/app.git.
func RewriteRemoteURL(raw, alias string) (string, error) {
	t, err := ParseRemoteURL(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("git@%s:%s.git", alias, t.Path), nil
}
