// Package sshconfig keeps a managed region of the user's SSH client config
// in step with the account list. Each account with a key gets one Host
// block; everything outside the marker comments is left byte-for-byte as
// the user wrote it.
package sshconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
)

// Marker comments bounding the managed region.
const (
	StartMarker = "# >>> gitacct managed hosts >>>"
	EndMarker   = "# <<< gitacct managed hosts <<<"
)

// DefaultHostname is used for accounts without their own Hostname.
const DefaultHostname = "github.com"

// Skip reasons.
const (
	ReasonNoKey      = "no ssh key"
	ReasonKeyMissing = "key file missing"
)

// Defaults fill in the per-block values accounts don't set themselves.
type Defaults struct {
	Hostname       string
	User           string
	IdentitiesOnly bool
}

// DefaultDefaults returns the values used for GitHub-style hosting.
func DefaultDefaults() Defaults {
	return Defaults{Hostname: DefaultHostname, User: "git", IdentitiesOnly: true}
}

// Synchronizer rewrites the managed region of the SSH config at Path.
type Synchronizer struct {
	Path     string
	Prefix   string // prepended to every host alias
	Defaults Defaults
	Logger   logger.Logger
}

// New returns a Synchronizer for path with default block values.
func New(path string) *Synchronizer {
	return &Synchronizer{
		Path:     path,
		Defaults: DefaultDefaults(),
		Logger:   logger.NewEnvLogger("[sshconfig]"),
	}
}

// Skip records an account that produced no Host block.
type Skip struct {
	Account model.Account `json:"account"`
	Reason  string        `json:"reason"`
}

// Result reports what a sync did.
type Result struct {
	Path    string          `json:"path"`
	Synced  []model.Account `json:"synced"`
	Skipped []Skip          `json:"skipped"`
	Changed bool            `json:"changed"`
}

// Aliases returns the host alias of every synced account, in order.
func (r *Result) Aliases(prefix string) []string {
	out := make([]string, 0, len(r.Synced))
	for _, a := range r.Synced {
		out = append(out, model.HostAlias(prefix, a.Name))
	}
	return out
}

// Plan is the outcome of computing a sync without writing it.
type Plan struct {
	Result
	Current []byte
	Desired []byte
	Region  string
}

// DuplicateAliasError is the cause attached when two accounts map to the
// same Host alias.
type DuplicateAliasError struct {
	Alias  string
	First  string
	Second string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("accounts %q and %q both map to host alias %q", e.First, e.Second, e.Alias)
}

// Sync regenerates the managed region from accounts and writes the file
// atomically. Nothing is written when the content would not change, and a
// file without markers is left alone when there is nothing to add.
func (s *Synchronizer) Sync(accounts []model.Account) (*Result, error) {
	plan, err := s.Plan(accounts)
	if err != nil {
		return nil, err
	}

	if !plan.Changed {
		logger.OrDefault(s.Logger).Debug("%s already up to date", s.Path)
		return &plan.Result, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't create %s", filepath.Dir(s.Path)),
			"Check permissions on your home directory.")
	}
	if err := fsutil.WriteFileAtomic(s.Path, plan.Desired, 0600); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't write %s", s.Path),
			"Check that the file and its directory are writable.")
	}

	logger.OrDefault(s.Logger).Info("wrote %d host(s) to %s", len(plan.Synced), s.Path)
	return &plan.Result, nil
}

// Plan computes what Sync would write without touching the file.
func (s *Synchronizer) Plan(accounts []model.Account) (*Plan, error) {
	current, err := os.ReadFile(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't read %s", s.Path),
			"Check the file's permissions.")
	}

	doc, err := split(current)
	if err != nil {
		return nil, s.malformed(err)
	}

	region, synced, skipped, err := s.render(accounts)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Result:  Result{Path: s.Path, Synced: synced, Skipped: skipped},
		Current: current,
		Region:  region,
	}

	switch {
	case doc.found:
		plan.Desired = doc.join(region)
	case len(synced) == 0:
		plan.Desired = current
	default:
		var b bytes.Buffer
		b.Write(current)
		if len(current) > 0 {
			if !bytes.HasSuffix(current, []byte("\n")) {
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
		b.WriteString(region)
		plan.Desired = b.Bytes()
	}

	plan.Changed = !bytes.Equal(plan.Desired, current)
	return plan, nil
}

// Render returns the managed region (markers included) that accounts would
// produce, plus which accounts were synced and which were skipped.
func (s *Synchronizer) Render(accounts []model.Account) (string, []model.Account, []Skip, error) {
	return s.render(accounts)
}

func (s *Synchronizer) render(accounts []model.Account) (string, []model.Account, []Skip, error) {
	log := logger.OrDefault(s.Logger)

	var synced []model.Account
	var skipped []Skip
	owner := make(map[string]string)

	var blocks []string
	for _, acct := range accounts {
		if !acct.HasKey() {
			skipped = append(skipped, Skip{Account: acct, Reason: ReasonNoKey})
			continue
		}
		if !fsutil.Exists(fsutil.ExpandHome(acct.SSHKeyPath)) {
			log.Warn("skipping account %q: key %s not found", acct.Name, acct.SSHKeyPath)
			skipped = append(skipped, Skip{Account: acct, Reason: ReasonKeyMissing})
			continue
		}

		alias := model.HostAlias(s.Prefix, acct.Name)
		if alias == s.Prefix {
			return "", nil, nil, errors.New(errors.ErrInvalid,
				fmt.Sprintf("Account %q doesn't produce a usable host alias", acct.Name),
				"Rename the account so it contains at least one letter or digit.")
		}
		if first, dup := owner[alias]; dup {
			return "", nil, nil, errors.WrapWithCode(
				&DuplicateAliasError{Alias: alias, First: first, Second: acct.Name},
				errors.ErrDuplicateHost,
				fmt.Sprintf("Accounts %q and %q would both use host alias %q", first, acct.Name, alias),
				"Rename one of the accounts so their aliases differ.")
		}
		owner[alias] = acct.Name

		blocks = append(blocks, s.block(alias, acct))
		synced = append(synced, acct)
	}

	var b strings.Builder
	b.WriteString(StartMarker)
	b.WriteByte('\n')
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString(EndMarker)
	b.WriteByte('\n')

	return b.String(), synced, skipped, nil
}

func (s *Synchronizer) block(alias string, acct model.Account) string {
	hostname := acct.Hostname
	if hostname == "" {
		hostname = s.Defaults.Hostname
	}
	if hostname == "" {
		hostname = DefaultHostname
	}
	user := s.Defaults.User
	if user == "" {
		user = "git"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Host %s\n", alias)
	fmt.Fprintf(&b, "    HostName %s\n", hostname)
	fmt.Fprintf(&b, "    User %s\n", user)
	fmt.Fprintf(&b, "    IdentityFile %s\n", quoteIfSpaced(acct.SSHKeyPath))
	if s.Defaults.IdentitiesOnly {
		b.WriteString("    IdentitiesOnly yes\n")
	}
	return b.String()
}

func (s *Synchronizer) malformed(err error) error {
	return errors.WrapWithCode(err, errors.ErrMalformedConfig,
		fmt.Sprintf("The gitacct section of %s is damaged", s.Path),
		fmt.Sprintf("Make sure %q and %q each appear once, start before end, or remove both and sync again.",
			StartMarker, EndMarker))
}

// ManagedHosts parses the managed region of the SSH config at path and
// returns the hosts it declares. A file without a region yields none.
func ManagedHosts(path string) ([]sshutil.HostEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't read %s", path), "")
	}

	doc, err := split(content)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrMalformedConfig,
			fmt.Sprintf("The gitacct section of %s is damaged", path), "")
	}
	if !doc.found {
		return nil, nil
	}

	hosts, err := sshutil.ParseSSHConfig(doc.region)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrMalformedConfig,
			fmt.Sprintf("Couldn't parse the gitacct section of %s", path), "")
	}
	return hosts, nil
}

func quoteIfSpaced(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}
