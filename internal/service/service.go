// Package service is the single entry point the CLI and the HTTP API share.
// It owns the rules that span packages: an account's key, its SSH host
// block and its projects change together, and every write to the SSH
// config or a repository's git config is serialized.
package service

import (
	"context"
	"sync"

	"github.com/rileyhilliard/gitacct/internal/config"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/keygen"
	"github.com/rileyhilliard/gitacct/internal/lock"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/project"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
	"github.com/rileyhilliard/gitacct/internal/store"
)

// AccountLister is what the SSH sync reads accounts through.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
}

// ProjectLister is what bulk validation reads projects through.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Service wires the store to the key generator, the SSH config
// synchronizer, and the project tools.
type Service struct {
	Store        *store.Store
	Keygen       *keygen.Generator
	SSH          *sshconfig.Synchronizer
	Validator    *project.Validator
	Configurator *project.Configurator
	Runner       exec.Runner
	Logger       logger.Logger

	// KeyType and KeyBits are used when an account is created without
	// naming its own.
	KeyType string
	KeyBits int

	// LockDir is the cross-process lock. Empty disables it, leaving only
	// the in-process mutex.
	LockDir string
	Lock    lock.Config

	mu sync.Mutex
}

// New builds a Service from cfg over st.
func New(cfg *config.Config, st *store.Store) *Service {
	log := logger.NewEnvLogger("[gitacct]")
	runner := exec.NewLocalRunner()

	gen := keygen.NewGenerator(cfg.SSHDir)
	gen.Runner = runner
	gen.Binary = cfg.Keygen.Binary
	gen.Timeout = cfg.Keygen.Timeout

	syn := sshconfig.New(cfg.SSHConfig)
	syn.Prefix = cfg.SSH.HostPrefix
	syn.Defaults = sshconfig.Defaults{
		Hostname:       cfg.SSH.Hostname,
		User:           cfg.SSH.User,
		IdentitiesOnly: cfg.SSH.IdentitiesOnly,
	}

	return &Service{
		Store:        st,
		Keygen:       gen,
		SSH:          syn,
		Validator:    project.NewValidator(),
		Configurator: &project.Configurator{HostPrefix: cfg.SSH.HostPrefix, Logger: log},
		Runner:       runner,
		Logger:       log,
		KeyType:      cfg.Keygen.Type,
		KeyBits:      cfg.Keygen.Bits,
		LockDir:      cfg.LockDir(),
		Lock:         lock.Config{Timeout: cfg.Lock.Timeout, Stale: cfg.Lock.Stale},
	}
}

// HostAlias returns the SSH host alias for an account.
func (s *Service) HostAlias(acct model.Account) string {
	return model.HostAlias(s.SSH.Prefix, acct.Name)
}

// withLock runs fn holding the process mutex and, when configured, the
// cross-process lock.
func (s *Service) withLock(ctx context.Context, command string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LockDir != "" {
		l, err := lock.Acquire(ctx, s.LockDir, s.Lock, command)
		if err != nil {
			return err
		}
		defer func() {
			if err := l.Release(); err != nil {
				s.log().Warn("releasing lock: %v", err)
			}
		}()
	}
	return fn()
}

func (s *Service) log() logger.Logger {
	return logger.OrDefault(s.Logger)
}
