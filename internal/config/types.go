package config

import (
	"path/filepath"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete config.yaml file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// SSHDir is where generated keys are written.
	SSHDir string `yaml:"ssh_dir" mapstructure:"ssh_dir"`

	// SSHConfig is the SSH client config whose managed region gitacct owns.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	// Database is the SQLite file holding accounts and projects.
	Database string `yaml:"database" mapstructure:"database"`

	Keygen KeygenConfig `yaml:"keygen" mapstructure:"keygen"`
	SSH    SSHConfig    `yaml:"ssh" mapstructure:"ssh"`
	Lock   LockConfig   `yaml:"lock" mapstructure:"lock"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// KeygenConfig controls key generation.
type KeygenConfig struct {
	// Type is "ed25519" or "rsa".
	Type string `yaml:"type" mapstructure:"type"`

	// Bits is the rsa key size. Ignored for ed25519.
	Bits int `yaml:"bits" mapstructure:"bits"`

	// Timeout bounds a single ssh-keygen run.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Binary is the ssh-keygen executable, looked up on PATH when bare.
	Binary string `yaml:"binary" mapstructure:"binary"`
}

// SSHConfig holds the values written into every managed Host block.
type SSHConfig struct {
	Hostname       string `yaml:"hostname" mapstructure:"hostname"`
	User           string `yaml:"user" mapstructure:"user"`
	HostPrefix     string `yaml:"host_prefix" mapstructure:"host_prefix"`
	IdentitiesOnly bool   `yaml:"identities_only" mapstructure:"identities_only"`
}

// LockConfig controls the lock that serializes writers of the SSH config
// and the database.
type LockConfig struct {
	// Timeout is how long to wait for a lock before giving up.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Stale is when to consider a lock stale (holder probably crashed).
	Stale time.Duration `yaml:"stale" mapstructure:"stale"`
}

// ServerConfig controls `gitacct serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults. Paths still carry
// a leading ~; Load expands them.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentConfigVersion,
		SSHDir:    "~/.ssh",
		SSHConfig: "~/.ssh/config",
		Database:  "~/" + filepath.Join(GlobalConfigDir, "gitacct.db"),
		Keygen: KeygenConfig{
			Type:    "ed25519",
			Bits:    4096,
			Timeout: 30 * time.Second,
			Binary:  "ssh-keygen",
		},
		SSH: SSHConfig{
			Hostname:       "github.com",
			User:           "git",
			IdentitiesOnly: true,
		},
		Lock: LockConfig{
			Timeout: 30 * time.Second,
			Stale:   10 * time.Minute,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// LockDir is the lock directory, kept next to the SSH config it guards.
func (c *Config) LockDir() string {
	return filepath.Join(filepath.Dir(c.SSHConfig), ".gitacct.lock")
}
