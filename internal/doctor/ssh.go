package doctor

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
)

// SSHAgentCheck verifies the SSH agent is running and reports how many
// keys it holds. A missing agent is only a warning: keys on disk work
// without one.
type SSHAgentCheck struct {
	Socket string // defaults to $SSH_AUTH_SOCK
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return "SSH" }

func (c *SSHAgentCheck) Run() CheckResult {
	socket := c.Socket
	if socket == "" {
		socket = os.Getenv(sshutil.AuthSockEnv)
	}
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start one with: eval $(ssh-agent) && ssh-add",
		}
	}

	// Verify we can connect to the socket
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Restart it with: eval $(ssh-agent) && ssh-add",
		}
	}
	conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	agent := &sshutil.SocketAgent{Socket: socket}
	defer agent.Close() //nolint:errcheck
	fps, err := agent.Fingerprints()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}
	if len(fps) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add <key>",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", len(fps), pluralize(len(fps))),
	}
}

func (c *SSHAgentCheck) Fix() error {
	// Running ssh-add would require interaction, so not auto-fixable
	return nil
}

// AccountKeysCheck verifies every account's key exists with private
// permissions.
type AccountKeysCheck struct {
	Accounts []model.Account
}

func (c *AccountKeysCheck) Name() string     { return "account_keys" }
func (c *AccountKeysCheck) Category() string { return "SSH" }

func (c *AccountKeysCheck) Run() CheckResult {
	var missing, badPerms []string
	checked := 0

	for _, a := range c.Accounts {
		if !a.HasKey() {
			continue
		}
		checked++
		path := fsutil.ExpandHome(a.SSHKeyPath)
		info, err := os.Stat(path)
		if err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", a.Name, a.SSHKeyPath))
			continue
		}
		// Should be 0600 or 0400
		if info.Mode().Perm()&0077 != 0 {
			badPerms = append(badPerms, path)
		}
	}

	switch {
	case checked == 0:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No account keys to check",
		}
	case len(missing) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Missing keys: " + strings.Join(missing, ", "),
			Suggestion: "Point the account at a key with: gitacct account update <name> --key <path>",
		}
	case len(badPerms) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Insecure permissions on: " + strings.Join(badPerms, ", "),
			Suggestion: "Fix: chmod 600 <keyfile>, or run gitacct doctor --fix",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d account key%s present and private", checked, pluralize(checked)),
	}
}

func (c *AccountKeysCheck) Fix() error {
	for _, a := range c.Accounts {
		if !a.HasKey() {
			continue
		}
		path := fsutil.ExpandHome(a.SSHKeyPath)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0077 != 0 {
			if err := os.Chmod(path, 0600); err != nil {
				return fmt.Errorf("failed to fix permissions on %s: %w", path, err)
			}
		}
	}
	return nil
}

// SSHConfigCheck verifies the managed region of the SSH config matches the
// accounts. Fix re-syncs it.
type SSHConfigCheck struct {
	Synchronizer *sshconfig.Synchronizer
	Accounts     []model.Account
}

func (c *SSHConfigCheck) Name() string     { return "ssh_config" }
func (c *SSHConfigCheck) Category() string { return "SSH" }

func (c *SSHConfigCheck) Run() CheckResult {
	plan, err := c.Synchronizer.Plan(c.Accounts)
	if err != nil {
		res := CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot read %s", c.Synchronizer.Path),
		}
		if errors.IsCode(err, errors.ErrMalformedConfig) {
			res.Message = fmt.Sprintf("Managed region in %s is damaged", c.Synchronizer.Path)
			res.Suggestion = fmt.Sprintf("Make sure %q and %q each appear once, in that order.",
				sshconfig.StartMarker, sshconfig.EndMarker)
		}
		if errors.IsCode(err, errors.ErrDuplicateHost) {
			res.Message = "Two accounts share a host alias"
			res.Suggestion = "Rename one of them with: gitacct account update"
		}
		return res
	}

	if plan.Changed {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s is out of date with your accounts", c.Synchronizer.Path),
			Suggestion: "Fix: gitacct ssh sync",
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d host%s in sync", len(plan.Synced), pluralize(len(plan.Synced))),
	}
}

func (c *SSHConfigCheck) Fix() error {
	_, err := c.Synchronizer.Sync(c.Accounts)
	return err
}
