package project

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/gitconfig"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/model"
)

// DefaultRemoteName is used when neither the repository nor the project
// record names a remote.
const DefaultRemoteName = "origin"

// Configurator binds a repository to an account: its remote goes through
// the account's SSH host alias and its local identity becomes the
// account's.
type Configurator struct {
	HostPrefix string
	Logger     logger.Logger
}

// Configure rewrites p's remote to use acct's host alias and sets the
// repository's user.name and user.email, in one write of the config file.
// The returned project carries the resolved remote and Configured = true.
func (c *Configurator) Configure(ctx context.Context, p model.Project, acct model.Account) (model.Project, error) {
	log := logger.OrDefault(c.Logger)
	path := fsutil.ExpandHome(p.Path)

	if err := ctx.Err(); err != nil {
		return p, err
	}
	if acct.UserName == "" || acct.UserEmail == "" {
		return p, errors.New(errors.ErrInvalid,
			fmt.Sprintf("Account %q needs a user name and email before it can configure projects", acct.Name),
			"Update the account with: gitacct account update")
	}
	cfg, err := gitconfig.Load(path)
	if err != nil {
		return p, err
	}

	remoteName, remoteURL, err := resolveRemote(cfg, path, p)
	if err != nil {
		return p, err
	}

	alias := model.HostAlias(c.HostPrefix, acct.Name)
	rewritten, err := RewriteRemoteURL(remoteURL, alias)
	if err != nil {
		return p, err
	}

	cfg.SetRemoteURL(remoteName, rewritten)
	cfg.SetUser(acct.UserName, acct.UserEmail)
	if err := gitconfig.Save(path, cfg); err != nil {
		return p, err
	}

	log.Info("configured %s for %s (%s -> %s)", path, acct.Name, remoteName, rewritten)

	p.RemoteName = remoteName
	p.RemoteURL = rewritten
	p.AccountID = &acct.ID
	p.Configured = true
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

// resolveRemote prefers the remote configured in the repository and falls
// back to the one stored on the project.
func resolveRemote(cfg *gitconfig.File, path string, p model.Project) (string, string, error) {
	name := p.RemoteName
	if name == "" {
		name = DefaultRemoteName
	}

	remotes := cfg.Remotes()
	for _, r := range remotes {
		if r.Name == name {
			return r.Name, r.URL, nil
		}
	}
	if p.RemoteName == "" && len(remotes) > 0 {
		return remotes[0].Name, remotes[0].URL, nil
	}
	if p.RemoteURL != "" {
		return name, p.RemoteURL, nil
	}

	return "", "", errors.New(errors.ErrInvalid,
		fmt.Sprintf("%s has no remote %q and the project has no remote URL", path, name),
		"Add one with: git remote add origin <url>, or set the project's remote URL.")
}
