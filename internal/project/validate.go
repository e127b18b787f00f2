// Package project works on the repositories gitacct manages: checking that
// a repository's identity matches its account, binding a repository to an
// account, finding repositories on disk, and testing SSH access.
package project

import (
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/gitconfig"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
)

// Validator compares a project's on-disk state with its declared account.
// It never writes anything.
type Validator struct {
	// Agent is consulted when an account's key file is missing on disk.
	// Nil means no agent.
	Agent sshutil.Agent
}

// NewValidator returns a Validator using the agent at SSH_AUTH_SOCK, if any.
func NewValidator() *Validator {
	v := &Validator{}
	if a := sshutil.NewSocketAgent(); a != nil {
		v.Agent = a
	}
	return v
}

// Validate checks p against acct, which is nil when the project has no
// account. Discrepancies are returned as data; Validate has no error path.
func (v *Validator) Validate(p model.Project, acct *model.Account) model.ValidationReport {
	path := fsutil.ExpandHome(p.Path)
	report := model.ValidationReport{ProjectID: p.ID, Path: path, Valid: true}

	hasGit := true
	if _, err := gitconfig.GitDir(path); err != nil {
		hasGit = false
		report.Add(model.MissingGitDirectory, fmt.Sprintf("%s has no .git directory", path))
	}

	if acct == nil {
		report.Add(model.NoAccountAssigned, fmt.Sprintf("project %q has no account", p.Name))
		return report
	}

	if hasGit {
		v.checkUser(&report, path, acct)
	}
	v.checkKey(&report, acct)

	return report
}

func (v *Validator) checkUser(report *model.ValidationReport, path string, acct *model.Account) {
	name, email, err := gitconfig.ReadUser(path)
	if err != nil {
		if errors.IsCode(err, errors.ErrMalformedConfig) {
			report.Add(model.UserMismatch, "local git config can't be parsed: "+firstLine(err))
			return
		}
		report.Add(model.UserMismatch, "local git config can't be read: "+firstLine(err))
		return
	}

	var diffs []string
	if name != acct.UserName {
		diffs = append(diffs, fmt.Sprintf("user.name is %q, expected %q", name, acct.UserName))
	}
	if !strings.EqualFold(email, acct.UserEmail) {
		diffs = append(diffs, fmt.Sprintf("user.email is %q, expected %q", email, acct.UserEmail))
	}
	if len(diffs) > 0 {
		report.Add(model.UserMismatch, strings.Join(diffs, "; "))
	}
}

func (v *Validator) checkKey(report *model.ValidationReport, acct *model.Account) {
	if !acct.HasKey() {
		return
	}
	keyPath := fsutil.ExpandHome(acct.SSHKeyPath)
	if _, err := os.Stat(keyPath); err == nil {
		return
	}
	if v.Agent != nil && acct.PublicKey != "" && v.Agent.HasKey(acct.PublicKey) {
		return
	}
	report.Add(model.MissingKeyFile,
		fmt.Sprintf("key %s for account %q is not on disk or in the ssh agent", acct.SSHKeyPath, acct.Name))
}

// firstLine returns the cause of a structured error on one line.
func firstLine(err error) string {
	var e *errors.Error
	if errors.As(err, &e) && e.Cause != nil {
		return e.Cause.Error()
	}
	return strings.TrimSpace(strings.TrimPrefix(err.Error(), "✗"))
}
