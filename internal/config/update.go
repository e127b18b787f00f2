package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Keys lists every setting `config get` and `config set` accept.
func Keys() []string {
	keys := []string{
		"ssh_dir", "ssh_config", "database",
		"keygen.type", "keygen.bits", "keygen.timeout", "keygen.binary",
		"ssh.hostname", "ssh.user", "ssh.host_prefix", "ssh.identities_only",
		"lock.timeout", "lock.stale",
		"server.addr",
		"output.color",
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as the string `config get` prints.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "ssh_dir":
		return c.SSHDir, nil
	case "ssh_config":
		return c.SSHConfig, nil
	case "database":
		return c.Database, nil
	case "keygen.type":
		return c.Keygen.Type, nil
	case "keygen.bits":
		return fmt.Sprint(c.Keygen.Bits), nil
	case "keygen.timeout":
		return c.Keygen.Timeout.String(), nil
	case "keygen.binary":
		return c.Keygen.Binary, nil
	case "ssh.hostname":
		return c.SSH.Hostname, nil
	case "ssh.user":
		return c.SSH.User, nil
	case "ssh.host_prefix":
		return c.SSH.HostPrefix, nil
	case "ssh.identities_only":
		return fmt.Sprint(c.SSH.IdentitiesOnly), nil
	case "lock.timeout":
		return c.Lock.Timeout.String(), nil
	case "lock.stale":
		return c.Lock.Stale.String(), nil
	case "server.addr":
		return c.Server.Addr, nil
	case "output.color":
		return c.Output.Color, nil
	}
	return "", unknownKey(key)
}

func unknownKey(key string) error {
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown setting '%s'", key),
		"Known settings: "+strings.Join(Keys(), ", "))
}

// WriteDefault writes a config file holding every default. It refuses to
// replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConflict,
				fmt.Sprintf("%s already exists", path),
				"Pass --force to overwrite it.")
		}
	}

	d := DefaultConfig()
	doc := map[string]interface{}{
		"version":    d.Version,
		"ssh_dir":    d.SSHDir,
		"ssh_config": d.SSHConfig,
		"database":   d.Database,
		"keygen": map[string]interface{}{
			"type":    d.Keygen.Type,
			"bits":    d.Keygen.Bits,
			"timeout": d.Keygen.Timeout.String(),
			"binary":  d.Keygen.Binary,
		},
		"ssh": map[string]interface{}{
			"hostname":        d.SSH.Hostname,
			"user":            d.SSH.User,
			"host_prefix":     d.SSH.HostPrefix,
			"identities_only": d.SSH.IdentitiesOnly,
		},
		"lock": map[string]interface{}{
			"timeout": d.Lock.Timeout.String(),
			"stale":   d.Lock.Stale.String(),
		},
		"server": map[string]interface{}{"addr": d.Server.Addr},
		"output": map[string]interface{}{"color": d.Output.Color},
	}

	var buf strings.Builder
	buf.WriteString("# gitacct configuration. Every key can be overridden with\n")
	buf.WriteString("# GITACCT_<KEY>, dots replaced by underscores (GITACCT_SSH_HOST_PREFIX).\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}
	_ = encoder.Close()

	return writeConfigFile(path, []byte(buf.String()))
}

// SetValue sets key to value in the config file at path, creating the file
// when needed. Comments and unrelated keys are preserved. The result is
// loaded and validated before it is written.
func SetValue(path, key, value string) error {
	if _, err := DefaultConfig().Get(key); err != nil {
		return err
	}

	var root yaml.Node
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Failed to parse %s", path),
				"Fix the YAML syntax, or run 'gitacct config init --force'.")
		}
	case os.IsNotExist(err):
	default:
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to read %s", path), "")
	}

	if root.Kind == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s doesn't hold a YAML mapping", path),
			"Run 'gitacct config init --force' to start over.")
	}

	node := root.Content[0]
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child := findMapValue(node, part)
		if child == nil || child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			setMapValue(node, part, child)
		}
		node = child
	}
	setMapValue(node, parts[len(parts)-1], &yaml.Node{Kind: yaml.ScalarNode, Value: value})

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}
	_ = encoder.Close()

	// Validate the edited document before it replaces the old one.
	tmp, err := os.CreateTemp("", "gitacct-config-*.yaml")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFilesystem, "Failed to create a temp file", "")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(buf.String()); err != nil {
		_ = tmp.Close()
		return errors.WrapWithCode(err, errors.ErrFilesystem, "Failed to write a temp file", "")
	}
	_ = tmp.Close()

	cfg, err := Load(tmp.Name())
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("%q isn't a valid value for %s", value, key), "")
	}
	if err := Validate(cfg); err != nil {
		return err
	}

	return writeConfigFile(path, []byte(buf.String()))
}

func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't create %s", filepath.Dir(path)), "")
	}
	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Failed to write %s", path), "Check file permissions.")
	}
	return nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

// setMapValue replaces the value for key in a mapping node, appending the
// pair when the key is absent. The key's comments are kept.
func setMapValue(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			old := node.Content[i+1]
			value.LineComment = old.LineComment
			node.Content[i+1] = value
			return
		}
	}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
}
