package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for the config file and database,
	// relative to the home directory.
	GlobalConfigDir = ".config/gitacct"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. GITACCT_SSH_DIR.
	EnvPrefix = "GITACCT"
	// ConfigEnv names an explicit config file, like --config.
	ConfigEnv = "GITACCT_CONFIG"
)

// DefaultPath returns ~/.config/gitacct/config.yaml.
func DefaultPath() string {
	return fsutil.ExpandHome("~/" + filepath.Join(GlobalConfigDir, GlobalConfigFile))
}

// Load reads config from the specified path. Environment overrides apply
// on top of the file.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'gitacct config init' to create one, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. $GITACCT_CONFIG
// 3. ~/.config/gitacct/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(ConfigEnv)
	}

	if explicit != "" {
		explicit = fsutil.ExpandHome(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	global := DefaultPath()
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults
// (with environment overrides) if there is no file. A config file is
// optional: gitacct works out of the box.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("ssh_dir", d.SSHDir)
	v.SetDefault("ssh_config", d.SSHConfig)
	v.SetDefault("database", d.Database)
	v.SetDefault("keygen.type", d.Keygen.Type)
	v.SetDefault("keygen.bits", d.Keygen.Bits)
	v.SetDefault("keygen.timeout", d.Keygen.Timeout.String())
	v.SetDefault("keygen.binary", d.Keygen.Binary)
	v.SetDefault("ssh.hostname", d.SSH.Hostname)
	v.SetDefault("ssh.user", d.SSH.User)
	v.SetDefault("ssh.host_prefix", d.SSH.HostPrefix)
	v.SetDefault("ssh.identities_only", d.SSH.IdentitiesOnly)
	v.SetDefault("lock.timeout", d.Lock.Timeout.String())
	v.SetDefault("lock.stale", d.Lock.Stale.String())
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("output.color", d.Output.Color)
}

// parseConfig converts viper config to our Config struct and expands paths.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.SSHDir = ExpandPath(cfg.SSHDir)
	cfg.SSHConfig = ExpandPath(cfg.SSHConfig)
	cfg.Database = ExpandPath(cfg.Database)

	return cfg, nil
}

// ExpandPath expands $VARS and a leading ~ in a local path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	return fsutil.ExpandHome(os.ExpandEnv(path))
}
