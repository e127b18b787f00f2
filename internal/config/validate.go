package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// MinRSABits is the smallest rsa key size the config accepts.
const MinRSABits = 2048

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but gitacct only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade gitacct, or remove the newer settings from the config file.")
	}

	for key, val := range map[string]string{
		"ssh_dir":    cfg.SSHDir,
		"ssh_config": cfg.SSHConfig,
		"database":   cfg.Database,
	} {
		if strings.TrimSpace(val) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' can't be empty", key),
				"Remove the setting to use the default.")
		}
	}

	if err := validateKeygen(cfg.Keygen); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'keygen' section of your config.")
	}
	if err := validateSSH(cfg.SSH); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ssh' section of your config.")
	}
	if err := validateLock(cfg.Lock); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'lock' section of your config.")
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("server.addr %q isn't host:port", cfg.Server.Addr),
			"Use something like 127.0.0.1:8000.")
	}
	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section of your config.")
	}

	return nil
}

func validateKeygen(k KeygenConfig) error {
	switch k.Type {
	case "ed25519":
	case "rsa":
		if k.Bits < MinRSABits {
			return fmt.Errorf("keygen.bits is %d, rsa keys need at least %d", k.Bits, MinRSABits)
		}
	default:
		return fmt.Errorf("keygen.type %q isn't supported (use ed25519 or rsa)", k.Type)
	}
	if k.Timeout <= 0 {
		return fmt.Errorf("keygen.timeout must be positive, got %s", k.Timeout)
	}
	if strings.TrimSpace(k.Binary) == "" {
		return fmt.Errorf("keygen.binary can't be empty")
	}
	return nil
}

func validateSSH(s SSHConfig) error {
	if strings.TrimSpace(s.Hostname) == "" || strings.ContainsAny(s.Hostname, " \t") {
		return fmt.Errorf("ssh.hostname %q isn't a valid host name", s.Hostname)
	}
	if strings.ContainsAny(s.User, " \t") {
		return fmt.Errorf("ssh.user %q can't contain spaces", s.User)
	}
	for _, r := range s.HostPrefix {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' && r != '.' && r != '_' {
			return fmt.Errorf("ssh.host_prefix %q may only contain a-z, 0-9, '-', '.' and '_'", s.HostPrefix)
		}
	}
	return nil
}

func validateLock(l LockConfig) error {
	if l.Timeout <= 0 {
		return fmt.Errorf("lock.timeout must be positive, got %s", l.Timeout)
	}
	if l.Stale < 0 {
		return fmt.Errorf("lock.stale can't be negative, got %s", l.Stale)
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	switch o.Color {
	case "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("output.color must be auto, always, or never, got %q", o.Color)
}
