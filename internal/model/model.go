// Package model holds the records gitacct reads and writes: accounts,
// account types, and projects, plus the naming helpers that turn an account
// into an SSH host alias and key file name.
package model

import (
	"strings"
	"time"
)

// Key types accepted by the key generator.
const (
	KeyTypeEd25519 = "ed25519"
	KeyTypeRSA     = "rsa"
)

// AccountType is a free-form category for accounts ("work", "personal").
type AccountType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is a named Git identity.
type Account struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	TypeID     *int64    `json:"account_type_id,omitempty"`
	SSHKeyPath string    `json:"ssh_key_path,omitempty"`
	PublicKey  string    `json:"public_key,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Type is populated by the store when the account has a type.
	Type *AccountType `json:"account_type,omitempty"`
}

// HasKey reports whether the account references an SSH key.
func (a Account) HasKey() bool {
	return strings.TrimSpace(a.SSHKeyPath) != ""
}

// Project binds a local repository directory to an account.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	AccountID  *int64    `json:"account_id"`
	RemoteURL  string    `json:"remote_url,omitempty"`
	RemoteName string    `json:"remote_name,omitempty"`
	Configured bool      `json:"configured"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HostAlias derives the SSH Host alias for an account name. Runs of
// characters outside [a-z0-9] collapse to a single "-".
func HostAlias(prefix, name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if isAlnum(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return prefix + strings.TrimRight(b.String(), "-")
}

// KeyBasename builds the key file name for an identity:
// id_<type>_<name>_<email>, with every non-alphanumeric character
// replaced by "_".
func KeyBasename(keyType, name, email string) string {
	return "id_" + keyType + "_" + sanitize(name) + "_" + sanitize(email)
}

func sanitize(s string) string {
	out := []rune(strings.ToLower(s))
	for i, r := range out {
		if !isAlnum(r) {
			out[i] = '_'
		}
	}
	return string(out)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
