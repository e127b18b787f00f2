// Package lock serializes gitacct processes that write the same files.
// The lock is a directory created with mkdir, which is atomic: whoever
// creates it holds the lock. An info.json inside names the holder so a
// waiting process can say who it is waiting for and can clear locks left
// behind by a crashed process.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultStale        = 10 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond
)

const infoName = "info.json"

// Config controls lock acquisition.
type Config struct {
	Timeout      time.Duration // how long to wait for a held lock
	Stale        time.Duration // locks older than this are removed; 0 disables
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Stale < 0 {
		c.Stale = 0
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Lock represents an acquired lock.
type Lock struct {
	Dir  string    // The lock directory path
	Info *LockInfo // Info about the lock holder (us)
}

// Acquire takes the lock at dir, waiting for a current holder until the
// configured timeout or ctx ends. Stale locks are removed first.
func Acquire(ctx context.Context, dir string, cfg Config, command string) (*Lock, error) {
	cfg = cfg.withDefaults()
	info := NewLockInfo(command)
	deadline := time.Now().Add(cfg.Timeout)

	if err := os.MkdirAll(filepath.Dir(dir), 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Couldn't create %s", filepath.Dir(dir)), "")
	}

	for {
		l, err := TryAcquire(dir, info)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLocked) {
			return nil, err
		}

		if isStale(dir, cfg.Stale) {
			if err := os.RemoveAll(dir); err == nil {
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, errors.New(errors.ErrLock,
				fmt.Sprintf("Timed out waiting for lock after %s", cfg.Timeout),
				fmt.Sprintf("Lock held by: %s. If that process is gone, remove %s.", Holder(dir), dir))
		}

		select {
		case <-ctx.Done():
			return nil, errors.WrapWithCode(ctx.Err(), errors.ErrLock,
				"Gave up waiting for lock", "")
		case <-time.After(cfg.PollInterval):
		}
	}
}

// TryAcquire takes the lock at dir without waiting. It returns ErrLocked
// when another process holds it.
func TryAcquire(dir string, info *LockInfo) (*Lock, error) {
	if err := os.Mkdir(dir, 0700); err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Couldn't create lock directory %s", dir),
			"Check permissions on the parent directory.")
	}

	data, err := info.Marshal()
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, infoName), data, 0600)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.WrapWithCode(err, errors.ErrLock,
			"Failed to write lock info file",
			"Check disk space and permissions.")
	}

	return &Lock{Dir: dir, Info: info}, nil
}

// Release removes the lock, allowing others to acquire it.
func (l *Lock) Release() error {
	if l == nil || l.Dir == "" {
		return nil // Nothing to release
	}
	if err := os.RemoveAll(l.Dir); err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory: %s", l.Dir), "")
	}
	return nil
}

// ForceRelease removes a lock directory regardless of who holds it.
func ForceRelease(dir string) error {
	return (&Lock{Dir: dir}).Release()
}

// Holder describes who holds the lock at dir.
func Holder(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, infoName))
	if err != nil {
		return "unknown"
	}
	info, err := ParseLockInfo(data)
	if err != nil {
		return strings.TrimSpace(string(data))
	}
	return info.String()
}

// isStale reports whether the lock at dir is older than threshold. A lock
// without readable info is judged by the directory's mtime, so a holder
// that died between mkdir and writing info doesn't wedge everyone.
func isStale(dir string, threshold time.Duration) bool {
	if threshold <= 0 {
		return false
	}

	data, err := os.ReadFile(filepath.Join(dir, infoName))
	if err == nil {
		if info, err := ParseLockInfo(data); err == nil {
			return info.Age() > threshold
		}
	}

	st, err := os.Stat(dir)
	if err != nil {
		return false
	}
	return time.Since(st.ModTime()) > threshold
}
