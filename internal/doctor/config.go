package doctor

import (
	"fmt"

	"github.com/rileyhilliard/gitacct/internal/config"
	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
)

// ConfigCheck verifies the config file, if there is one, loads and
// validates. No file is fine: defaults apply.
type ConfigCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run() CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Error finding config: %v", err),
			Suggestion: "Check the --config path or $" + config.ConfigEnv,
		}
	}

	if path == "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No config file, using defaults",
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Failed to load %s", path),
			Suggestion: "Check the YAML syntax in your config file",
		}
	}

	if err := config.Validate(cfg); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Invalid settings in %s", path),
			Suggestion: reason(err),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Config file: " + path,
	}
}

func (c *ConfigCheck) Fix() error {
	return nil // Schema issues require manual intervention
}

// Options feed NewChecks.
type Options struct {
	ConfigPath   string
	Runner       exec.Runner
	Accounts     []model.Account
	Synchronizer *sshconfig.Synchronizer // nil skips the drift check
}

// NewChecks creates every check, in display order.
func NewChecks(opts Options) []Check {
	checks := []Check{&ConfigCheck{ConfigPath: opts.ConfigPath}}
	checks = append(checks, NewToolChecks(opts.Runner)...)
	checks = append(checks,
		&SSHAgentCheck{},
		&AccountKeysCheck{Accounts: opts.Accounts},
	)
	if opts.Synchronizer != nil {
		checks = append(checks, &SSHConfigCheck{Synchronizer: opts.Synchronizer, Accounts: opts.Accounts})
	}
	return checks
}

// reason picks the most specific message out of a structured error.
func reason(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
