// Package sshutil reads OpenSSH client state: the hosts declared in an
// ssh_config file and the identities loaded into the running ssh-agent.
package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry represents a parsed host entry from an SSH config file.
type HostEntry struct {
	Alias        string `json:"alias"`         // The Host pattern (alias)
	Hostname     string `json:"hostname"`      // The HostName value (actual host to connect to)
	User         string `json:"user"`          // The User value
	Port         string `json:"port"`          // The Port value
	IdentityFile string `json:"identity_file"` // The IdentityFile value, ~ expanded
}

// Description returns a short human-readable summary of the host.
func (h HostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}

	if h.IdentityFile != "" {
		parts = append(parts, "key: "+filepath.Base(h.IdentityFile))
	}

	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}

	return strings.Join(parts, ", ")
}

// HasIdentityFile reports whether the host names an IdentityFile that
// exists on disk.
func (h HostEntry) HasIdentityFile() bool {
	if h.IdentityFile == "" {
		return false
	}
	_, err := os.Stat(h.IdentityFile)
	return err == nil
}

// ParseSSHConfigFile parses the specified SSH config file and returns every
// concrete host alias in it, sorted by alias. Wildcard patterns are
// skipped. A missing file yields no hosts and no error.
func ParseSSHConfigFile(configPath string) ([]HostEntry, error) {
	content, err := readUntilMatch(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No SSH config is fine
		}
		return nil, err
	}
	return ParseSSHConfig(content)
}

// ParseSSHConfig parses config text the same way ParseSSHConfigFile does.
func ParseSSHConfig(content []byte) ([]HostEntry, error) {
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			// Skip wildcards and negations
			if strings.ContainsAny(alias, "*?!") {
				continue
			}

			if seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}

			if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
				entry.Hostname = hostname
			}

			if user, _ := cfg.Get(alias, "User"); user != "" {
				entry.User = user
			}

			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.Port = port
			}

			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}

			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// FilterHostsWithKeys returns only hosts whose IdentityFile exists.
func FilterHostsWithKeys(hosts []HostEntry) []HostEntry {
	var filtered []HostEntry
	for _, h := range hosts {
		if h.HasIdentityFile() {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

// readUntilMatch returns the config content up to the first Match
// directive, which ssh_config can't decode.
func readUntilMatch(configPath string) ([]byte, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	for _, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(trimmed, "match ") {
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
