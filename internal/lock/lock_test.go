package lock

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockInfo_NewLockInfo(t *testing.T) {
	info := NewLockInfo("ssh sync")

	assert.NotEmpty(t, info.User)
	assert.NotEmpty(t, info.Hostname)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "ssh sync", info.Command)
	assert.WithinDuration(t, time.Now(), info.Started, time.Second)
}

func TestLockInfo_Age(t *testing.T) {
	info := &LockInfo{Started: time.Now().Add(-5 * time.Minute)}
	age := info.Age()
	assert.GreaterOrEqual(t, age, 5*time.Minute)
	assert.Less(t, age, 6*time.Minute)
}

func TestLockInfo_MarshalRoundTrip(t *testing.T) {
	info := &LockInfo{
		User:     "riley",
		Hostname: "laptop",
		Started:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		PID:      4242,
		Command:  "account add",
	}

	data, err := info.Marshal()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "riley", raw["user"])
	assert.Equal(t, "account add", raw["command"])

	parsed, err := ParseLockInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info.User, parsed.User)
	assert.Equal(t, info.PID, parsed.PID)
	assert.True(t, info.Started.Equal(parsed.Started))
}

func TestParseLockInfo_Invalid(t *testing.T) {
	_, err := ParseLockInfo([]byte("not json"))
	assert.Error(t, err)
}

func TestLockInfo_String(t *testing.T) {
	info := &LockInfo{User: "riley", Hostname: "laptop", PID: 7}
	assert.Equal(t, "riley@laptop (pid 7)", info.String())

	info.Command = "ssh sync"
	assert.Equal(t, "riley@laptop (pid 7) running 'ssh sync'", info.String())
}

func TestAcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "gitacct.lock")

	l, err := Acquire(context.Background(), dir, Config{}, "ssh sync")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.FileExists(t, filepath.Join(dir, infoName))
	assert.Contains(t, Holder(dir), "ssh sync")

	require.NoError(t, l.Release())
	assert.NoDirExists(t, dir)

	// A second release is harmless.
	require.NoError(t, l.Release())
}

func TestTryAcquire_Held(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	l, err := TryAcquire(dir, NewLockInfo("first"))
	require.NoError(t, err)
	defer l.Release()

	_, err = TryAcquire(dir, NewLockInfo("second"))
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcquire_TimesOutNamingHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	held, err := TryAcquire(dir, NewLockInfo("project configure"))
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), dir, Config{
		Timeout:      150 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, "ssh sync")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrLock))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Contains(t, e.Suggestion, "project configure")
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	held, err := TryAcquire(dir, NewLockInfo("first"))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release()
	}()

	l, err := Acquire(context.Background(), dir, Config{
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, "second")
	require.NoError(t, err)
	defer l.Release()
	assert.Contains(t, Holder(dir), "second")
}

func TestAcquire_RemovesStaleLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	old := NewLockInfo("crashed")
	old.Started = time.Now().Add(-time.Hour)
	_, err := TryAcquire(dir, old)
	require.NoError(t, err)

	l, err := Acquire(context.Background(), dir, Config{
		Timeout: 100 * time.Millisecond,
		Stale:   time.Minute,
	}, "fresh")
	require.NoError(t, err)
	defer l.Release()
	assert.Contains(t, Holder(dir), "fresh")
}

func TestAcquire_StaleDisabledKeepsOldLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	old := NewLockInfo("crashed")
	old.Started = time.Now().Add(-time.Hour)
	held, err := TryAcquire(dir, old)
	require.NoError(t, err)
	defer held.Release()

	_, err = Acquire(context.Background(), dir, Config{
		Timeout:      50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, "fresh")
	assert.True(t, errors.IsCode(err, errors.ErrLock))
}

func TestAcquire_ContextCancelled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")

	held, err := TryAcquire(dir, NewLockInfo("first"))
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Acquire(ctx, dir, Config{Timeout: time.Minute}, "second")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrLock))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHolder(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "unknown", Holder(filepath.Join(dir, "missing")))

	lockDir := filepath.Join(dir, "garbage.lock")
	require.NoError(t, os.Mkdir(lockDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, infoName), []byte("someone\n"), 0600))
	assert.Equal(t, "someone", Holder(lockDir))
}

func TestForceRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gitacct.lock")
	_, err := TryAcquire(dir, NewLockInfo("stuck"))
	require.NoError(t, err)

	require.NoError(t, ForceRelease(dir))
	assert.NoDirExists(t, dir)
}
