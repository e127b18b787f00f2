package sshutil

import (
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AuthSockEnv names the environment variable holding the agent socket.
const AuthSockEnv = "SSH_AUTH_SOCK"

// Agent answers whether an ssh-agent holds a given public key.
type Agent interface {
	HasKey(authorizedKey string) bool
}

// SocketAgent talks to the agent listening on a unix socket. The
// connection is opened lazily, reused while it works, and redialed after
// a failed dial or a dropped connection.
type SocketAgent struct {
	Socket string

	mu     sync.Mutex
	conn   net.Conn
	client agent.ExtendedAgent
}

// NewSocketAgent returns an Agent for the socket named by SSH_AUTH_SOCK.
// It returns nil when the variable is unset.
func NewSocketAgent() *SocketAgent {
	socket := os.Getenv(AuthSockEnv)
	if socket == "" {
		return nil
	}
	return &SocketAgent{Socket: socket}
}

// dial returns the open client, connecting first if needed. Callers hold
// a.mu.
func (a *SocketAgent) dial() agent.ExtendedAgent {
	if a.client != nil {
		return a.client
	}
	conn, err := net.Dial("unix", a.Socket)
	if err != nil {
		return nil
	}
	a.conn = conn
	a.client = agent.NewClient(conn)
	return a.client
}

// reset drops the current connection so the next dial starts fresh.
// Callers hold a.mu.
func (a *SocketAgent) reset() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.conn, a.client = nil, nil
}

// Fingerprints returns the SHA256 fingerprints of every key the agent
// holds. A connection that fails is redialed once before giving up.
func (a *SocketAgent) Fingerprints() ([]string, error) {
	if a == nil {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var keys []*agent.Key
	for attempt := 0; attempt < 2; attempt++ {
		client := a.dial()
		if client == nil {
			return nil, nil
		}
		var err error
		keys, err = client.List()
		if err == nil {
			break
		}
		a.reset()
		if attempt == 1 {
			return nil, err
		}
	}

	fps := make([]string, 0, len(keys))
	for _, k := range keys {
		fps = append(fps, ssh.FingerprintSHA256(k))
	}
	return fps, nil
}

// HasKey reports whether the agent holds the key given as an
// authorized_keys line. An unreachable agent holds nothing.
func (a *SocketAgent) HasKey(authorizedKey string) bool {
	if a == nil || authorizedKey == "" {
		return false
	}
	want, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return false
	}
	fps, err := a.Fingerprints()
	if err != nil {
		return false
	}
	target := ssh.FingerprintSHA256(want)
	for _, fp := range fps {
		if fp == target {
			return true
		}
	}
	return false
}

// Close closes the agent connection if one is open.
func (a *SocketAgent) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn, a.client = nil, nil
	return err
}

// StaticAgent is an Agent holding a fixed set of keys, for tests and for
// callers that already listed the agent.
type StaticAgent struct {
	Keys []string
}

// HasKey reports whether key's fingerprint matches one of s.Keys.
func (s StaticAgent) HasKey(authorizedKey string) bool {
	want, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return false
	}
	target := ssh.FingerprintSHA256(want)
	for _, k := range s.Keys {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(k))
		if err != nil {
			continue
		}
		if ssh.FingerprintSHA256(pub) == target {
			return true
		}
	}
	return false
}
