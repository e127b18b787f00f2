package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/keygen"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/project"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
)

// Import skip reasons.
const (
	ImportExists     = "already an account"
	ImportNoKey      = "no usable identity file"
	ImportNoEmail    = "key comment has no email"
	ImportBadName    = "alias has no letters or digits"
	ImportAliasTaken = "host alias taken by another account" // e.g. "my_work" next to "my work"
)

// ImportSkip is a host ImportSSHConfig left alone.
type ImportSkip struct {
	Host   sshutil.HostEntry `json:"host"`
	Reason string            `json:"reason"`
}

// ImportResult reports what ImportSSHConfig adopted.
type ImportResult struct {
	Imported []model.Account `json:"imported"`
	Skipped  []ImportSkip    `json:"skipped"`
}

// SyncSSHConfig rewrites the managed region of the SSH config from the
// current account list.
func (s *Service) SyncSSHConfig(ctx context.Context) (*sshconfig.Result, error) {
	var res *sshconfig.Result
	err := s.withLock(ctx, "ssh sync", func() error {
		var err error
		res, err = s.syncLocked(ctx)
		return err
	})
	return res, err
}

// PlanSSHConfig reports what SyncSSHConfig would write, without writing.
func (s *Service) PlanSSHConfig(ctx context.Context) (*sshconfig.Plan, error) {
	accounts, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return s.SSH.Plan(accounts)
}

func (s *Service) syncLocked(ctx context.Context) (*sshconfig.Result, error) {
	return syncFrom(ctx, s.Store, s.SSH)
}

func syncFrom(ctx context.Context, lister AccountLister, syn *sshconfig.Synchronizer) (*sshconfig.Result, error) {
	accounts, err := lister.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return syn.Sync(accounts)
}

// SSHHosts lists every concrete host in the SSH config, managed or not.
func (s *Service) SSHHosts() ([]sshutil.HostEntry, error) {
	hosts, err := sshutil.ParseSSHConfigFile(s.SSH.Path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrMalformedConfig,
			fmt.Sprintf("Couldn't parse %s", s.SSH.Path),
			"Check the file with: ssh -G <host>")
	}
	return hosts, nil
}

// ImportSSHConfig adopts hosts the user configured by hand as accounts. A
// host qualifies when its IdentityFile exists with a .pub sibling whose
// comment is an email address. The SSH config itself is not touched; run
// SyncSSHConfig to move adopted hosts into the managed region.
func (s *Service) ImportSSHConfig(ctx context.Context) (*ImportResult, error) {
	hosts, err := s.SSHHosts()
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	err = s.withLock(ctx, "ssh import", func() error {
		existing, err := s.Store.ListAccounts(ctx)
		if err != nil {
			return err
		}
		names := make(map[string]bool)
		aliases := make(map[string]bool)
		keys := make(map[string]bool)
		for _, a := range existing {
			names[strings.ToLower(a.Name)] = true
			aliases[s.HostAlias(a)] = true
			if a.HasKey() {
				keys[fsutil.ExpandHome(a.SSHKeyPath)] = true
			}
		}

		for _, h := range hosts {
			name := strings.TrimPrefix(h.Alias, s.SSH.Prefix)
			priv := fsutil.ExpandHome(h.IdentityFile)

			if names[strings.ToLower(name)] || (priv != "" && keys[priv]) {
				res.Skipped = append(res.Skipped, ImportSkip{Host: h, Reason: ImportExists})
				continue
			}
			alias := model.HostAlias(s.SSH.Prefix, name)
			if alias == s.SSH.Prefix {
				res.Skipped = append(res.Skipped, ImportSkip{Host: h, Reason: ImportBadName})
				continue
			}
			if aliases[alias] {
				res.Skipped = append(res.Skipped, ImportSkip{Host: h, Reason: ImportAliasTaken})
				continue
			}
			if priv == "" || keygen.CheckKeyPair(priv) != nil {
				res.Skipped = append(res.Skipped, ImportSkip{Host: h, Reason: ImportNoKey})
				continue
			}
			text, comment, err := keygen.ReadPublicKey(priv + ".pub")
			if err != nil || !strings.Contains(comment, "@") {
				res.Skipped = append(res.Skipped, ImportSkip{Host: h, Reason: ImportNoEmail})
				continue
			}

			acct := model.Account{
				Name:       name,
				UserName:   name,
				UserEmail:  comment,
				SSHKeyPath: priv,
				PublicKey:  text,
			}
			if h.Hostname != "" && h.Hostname != s.SSH.Defaults.Hostname {
				acct.Hostname = h.Hostname
			}
			if err := s.Store.CreateAccount(ctx, &acct); err != nil {
				return err
			}
			names[strings.ToLower(name)] = true
			aliases[alias] = true
			keys[priv] = true
			res.Imported = append(res.Imported, acct)
			s.log().Info("imported host %s as account %q", h.Alias, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TestConnection checks that the account's host alias authenticates.
func (s *Service) TestConnection(ctx context.Context, accountID int64) (*project.ConnectionResult, error) {
	acct, err := s.Store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.HasKey() {
		return nil, errors.New(errors.ErrInvalid,
			fmt.Sprintf("Account %q has no SSH key, so it has no host alias", acct.Name),
			"Give it a key with: gitacct account update --key <path>")
	}
	return project.TestConnection(ctx, s.Runner, s.HostAlias(*acct))
}
