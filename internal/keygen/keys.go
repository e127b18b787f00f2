package keygen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/model"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultBinary is the key generation utility invoked by Generate.
	DefaultBinary = "ssh-keygen"
	// DefaultTimeout bounds a single ssh-keygen run.
	DefaultTimeout = 30 * time.Second
	// DefaultRSABits is used when an rsa key is requested without a size.
	DefaultRSABits = 4096
	// MinRSABits is the smallest rsa key accepted.
	MinRSABits = 2048
)

// Request describes the identity a key is generated for.
type Request struct {
	Name       string // account name, part of the file name
	Email      string // key comment, part of the file name
	Type       string // ed25519 (default) or rsa
	Bits       int    // rsa only
	Passphrase string // empty by default
}

// KeyPair is the result of a successful generation.
type KeyPair struct {
	PrivatePath string `json:"private_path"`
	PublicPath  string `json:"public_path"`
	PublicKey   string `json:"public_key"`
	Fingerprint string `json:"fingerprint"`
	Type        string `json:"type"`
}

// KeyInfo contains information about an SSH key found on disk.
type KeyInfo struct {
	Path       string // Full path to private key
	Type       string // Key type (ed25519, rsa, ecdsa)
	PublicPath string // Path to public key
	HasPublic  bool   // Whether public key file exists
}

// Generator creates keypairs in Dir by shelling out to ssh-keygen.
type Generator struct {
	Dir     string
	Runner  exec.Runner
	Binary  string
	Timeout time.Duration
	Logger  logger.Logger
}

// NewGenerator returns a Generator writing to dir with default settings.
func NewGenerator(dir string) *Generator {
	return &Generator{
		Dir:     dir,
		Runner:  exec.NewLocalRunner(),
		Binary:  DefaultBinary,
		Timeout: DefaultTimeout,
		Logger:  logger.NewEnvLogger("[keygen]"),
	}
}

// PathsFor returns the private and public key paths Generate would use.
func (g *Generator) PathsFor(req Request) (string, string) {
	keyType := req.Type
	if keyType == "" {
		keyType = model.KeyTypeEd25519
	}
	priv := filepath.Join(g.Dir, model.KeyBasename(keyType, req.Name, req.Email))
	return priv, priv + ".pub"
}

// Generate creates a new keypair for req. It never overwrites: if either
// target file exists it fails with KEY_COLLISION before running ssh-keygen.
// On failure or timeout any partially written file is removed.
func (g *Generator) Generate(ctx context.Context, req Request) (*KeyPair, error) {
	log := logger.OrDefault(g.Logger)

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return nil, errors.New(errors.ErrInvalid,
			"A key needs both a name and an email",
			"Pass the account name and the email used as the key comment.")
	}

	args, err := keyTypeArgs(&req)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(g.Dir, 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't create key directory %s", g.Dir),
			"Check permissions on the parent directory.")
	}

	privPath, pubPath := g.PathsFor(req)
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Lstat(p); err == nil {
			return nil, errors.New(errors.ErrKeyCollision,
				fmt.Sprintf("There's already a key at %s", p),
				"Delete the existing key pair or use a different account name or email.")
		}
	}

	args = append(args, "-C", req.Email, "-f", privPath, "-N", req.Passphrase)

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := g.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	runner := g.Runner
	if runner == nil {
		runner = exec.NewLocalRunner()
	}

	log.Debug("generating %s key at %s", req.Type, privPath)
	res, runErr := runner.Run(runCtx, exec.Command{Name: binary, Args: args})

	if runErr != nil && runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		removePair(privPath, pubPath)
		return nil, errors.WrapWithCode(runErr, errors.ErrKeygenTimeout,
			fmt.Sprintf("%s didn't finish within %s", binary, timeout),
			"Partial key files were removed. Try again or raise keygen.timeout.")
	}
	if runErr != nil {
		removePair(privPath, pubPath)
		return nil, errors.WrapWithCode(runErr, errors.ErrKeygen,
			fmt.Sprintf("Couldn't generate a key for %s", req.Name),
			"Make sure ssh-keygen is installed and on your PATH.")
	}
	if res.ExitCode != 0 {
		removePair(privPath, pubPath)
		return nil, errors.New(errors.ErrKeygen,
			fmt.Sprintf("%s exited with code %d: %s", binary, res.ExitCode, res.Diagnostic()),
			"Check the ssh-keygen output above.")
	}

	if _, err := os.Stat(privPath); err != nil {
		removePair(privPath, pubPath)
		return nil, errors.New(errors.ErrKeygen,
			fmt.Sprintf("%s finished but %s wasn't created", binary, privPath),
			"Check disk space and permissions.")
	}

	pubText, _, err := ReadPublicKey(pubPath)
	if err != nil {
		removePair(privPath, pubPath)
		return nil, err
	}
	fingerprint, err := Fingerprint(pubText)
	if err != nil {
		removePair(privPath, pubPath)
		return nil, errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Generated public key at %s can't be parsed", pubPath),
			"")
	}

	if err := os.Chmod(privPath, 0600); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't restrict permissions on %s", privPath), "")
	}
	if err := os.Chmod(pubPath, 0644); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't set permissions on %s", pubPath), "")
	}

	log.Info("generated %s key %s (%s)", req.Type, filepath.Base(privPath), fingerprint)

	return &KeyPair{
		PrivatePath: privPath,
		PublicPath:  pubPath,
		PublicKey:   pubText,
		Fingerprint: fingerprint,
		Type:        req.Type,
	}, nil
}

// keyTypeArgs validates and normalizes the key type, returning the
// ssh-keygen flags for it.
func keyTypeArgs(req *Request) ([]string, error) {
	if req.Type == "" {
		req.Type = model.KeyTypeEd25519
	}

	switch req.Type {
	case model.KeyTypeEd25519:
		req.Bits = 0
		return []string{"-q", "-t", model.KeyTypeEd25519}, nil
	case model.KeyTypeRSA:
		if req.Bits == 0 {
			req.Bits = DefaultRSABits
		}
		if req.Bits < MinRSABits {
			return nil, errors.New(errors.ErrInvalid,
				fmt.Sprintf("%d bits is too small for an rsa key", req.Bits),
				fmt.Sprintf("Use at least %d bits, or ed25519.", MinRSABits))
		}
		return []string{"-q", "-t", model.KeyTypeRSA, "-b", strconv.Itoa(req.Bits)}, nil
	default:
		return nil, errors.New(errors.ErrInvalid,
			fmt.Sprintf("'%s' isn't a supported key type", req.Type),
			"Pick from: ed25519 (recommended), rsa")
	}
}

func removePair(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// RemoveKeyPair deletes a private key and its .pub sibling. Missing files
// are ignored.
func RemoveKeyPair(privPath string) error {
	for _, p := range []string{privPath, privPath + ".pub"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.WrapWithCode(err, errors.ErrFilesystem,
				fmt.Sprintf("Couldn't delete %s", p),
				"Check file permissions.")
		}
	}
	return nil
}

// CheckKeyPair verifies that privPath exists and has a .pub sibling.
func CheckKeyPair(privPath string) error {
	info, err := os.Stat(privPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrInvalid,
			fmt.Sprintf("No private key at %s", privPath),
			"Point at an existing key or let gitacct generate one.")
	}
	if info.IsDir() {
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("%s is a directory, not a key", privPath), "")
	}
	if _, err := os.Stat(privPath + ".pub"); err != nil {
		return errors.WrapWithCode(err, errors.ErrInvalid,
			fmt.Sprintf("No public key next to %s", privPath),
			"Recreate it with: ssh-keygen -y -f "+privPath+" > "+privPath+".pub")
	}
	return nil
}

// ReadPublicKey reads a public key file and returns its trimmed content and
// the key comment (usually the email it was generated for).
func ReadPublicKey(pubPath string) (string, string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", "", errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't read public key %s", pubPath),
			"Check that the file exists and is readable.")
	}
	text := strings.TrimSpace(string(data))

	comment := ""
	if _, c, _, _, err := ssh.ParseAuthorizedKey([]byte(text)); err == nil {
		comment = c
	}
	return text, comment, nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys style
// public key line.
func Fingerprint(authorizedKey string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(pub), nil
}

// ListKeys returns every private key in dir that has a .pub sibling,
// sorted by path.
func ListKeys(dir string) ([]KeyInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
			fmt.Sprintf("Couldn't list %s", dir), "")
	}

	var keys []KeyInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		pubPath := filepath.Join(dir, e.Name())
		privPath := strings.TrimSuffix(pubPath, ".pub")
		if _, err := os.Stat(privPath); err != nil {
			continue
		}
		keys = append(keys, KeyInfo{
			Path:       privPath,
			Type:       inferKeyType(privPath),
			PublicPath: pubPath,
			HasPublic:  true,
		})
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Path < keys[j].Path })
	return keys, nil
}

// inferKeyType determines key type from filename.
func inferKeyType(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "ed25519"):
		return "ed25519"
	case strings.Contains(base, "ecdsa"):
		return "ecdsa"
	case strings.Contains(base, "rsa"):
		return "rsa"
	default:
		return "unknown"
	}
}
