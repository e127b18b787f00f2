package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/rileyhilliard/gitacct/internal/config"
	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
	"github.com/rileyhilliard/gitacct/internal/logger"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/project"
	"github.com/rileyhilliard/gitacct/internal/service"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
	"github.com/rileyhilliard/gitacct/internal/store"
)

func testPublicKey() (string, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))), nil
}

type harness struct {
	handler http.Handler
	svc     *service.Service
	home    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.SSHDir = filepath.Join(home, ".ssh")
	cfg.SSHConfig = filepath.Join(home, ".ssh", "config")
	cfg.SSH.HostPrefix = "gitacct-"

	st, err := store.Open(context.Background(), store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := service.New(cfg, st)
	svc.Keygen.Runner = &exec.FakeRunner{
		Handler: func(_ context.Context, cmd exec.Command) (exec.Result, error) {
			path := flagValue(cmd.Args, "-f")
			if err := os.WriteFile(path, []byte("PRIVATE"), 0600); err != nil {
				return exec.Result{}, err
			}
			key, err := testPublicKey()
			if err != nil {
				return exec.Result{}, err
			}
			pub := key + " " + flagValue(cmd.Args, "-C") + "\n"
			return exec.Result{}, os.WriteFile(path+".pub", []byte(pub), 0644)
		},
	}
	svc.Runner = &exec.FakeRunner{}
	svc.Keygen.Logger = logger.Noop()
	svc.SSH.Logger = logger.Noop()
	svc.Configurator.Logger = logger.Noop()
	svc.Logger = logger.Noop()
	svc.Validator = &project.Validator{}

	srv := New(svc)
	srv.Version = "test"
	return &harness{handler: srv.Handler(), svc: svc, home: home}
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) createAccount(t *testing.T, name string) model.Account {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/accounts", map[string]interface{}{
		"name":       name,
		"user_name":  "Jo " + name,
		"user_email": name + "@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[service.AccountResult](t, rec)
	return *res.Account
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health_check", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "test", body["version"])
}

func TestCheckPrerequisites(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/check_prerequisites", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Contains(t, body, "git")
	assert.Contains(t, body, "ssh")
	assert.Contains(t, body, "details")
}

func TestAccounts_CRUD(t *testing.T) {
	h := newHarness(t)

	acct := h.createAccount(t, "work")
	assert.NotZero(t, acct.ID)
	assert.NotEmpty(t, acct.PublicKey)

	sshCfg, err := os.ReadFile(filepath.Join(h.home, ".ssh", "config"))
	require.NoError(t, err)
	assert.Contains(t, string(sshCfg), "Host gitacct-work")

	rec := h.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Account](t, rec), 1)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "work", decode[model.Account](t, rec).Name)

	rec = h.do(t, http.MethodPut, fmt.Sprintf("/api/accounts/%d", acct.ID), map[string]string{
		"user_email": "new@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new@example.com", decode[service.AccountResult](t, rec).Account.UserEmail)

	rec = h.do(t, http.MethodDelete, fmt.Sprintf("/api/accounts/%d?purge_key=true", acct.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[service.AccountResult](t, rec).Purged, 2)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccounts_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	h.createAccount(t, "work")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing email", http.MethodPost, "/api/accounts",
			map[string]string{"name": "x", "user_name": "X"}, http.StatusBadRequest, errors.ErrInvalid},
		{"duplicate name", http.MethodPost, "/api/accounts",
			map[string]string{"name": "work", "user_name": "W", "user_email": "w@x.com"}, http.StatusConflict, errors.ErrConflict},
		{"alias collision", http.MethodPost, "/api/accounts",
			map[string]interface{}{"name": "Work!", "user_name": "W", "user_email": "w@x.com", "no_key": true},
			http.StatusConflict, ""},
		{"unknown id", http.MethodGet, "/api/accounts/999", nil, http.StatusNotFound, errors.ErrNotFound},
		{"bad id", http.MethodGet, "/api/accounts/abc", nil, http.StatusBadRequest, errors.ErrInvalid},
		{"bad body", http.MethodPost, "/api/account-types", "not an object", http.StatusBadRequest, errors.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode[errorBody](t, rec)
			assert.NotEmpty(t, body.Detail)
			if tt.code != "" {
				assert.Equal(t, tt.code, body.Code)
			}
		})
	}
}

func TestAccounts_SyncDryRunAndImport(t *testing.T) {
	h := newHarness(t)
	h.createAccount(t, "work")

	rec := h.do(t, http.MethodPost, "/api/accounts/sync-ssh-config?dry_run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), sshconfig.StartMarker)

	rec = h.do(t, http.MethodPost, "/api/accounts/sync-ssh-config", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[sshconfig.Result](t, rec).Changed)

	rec = h.do(t, http.MethodPost, "/api/accounts/import-ssh-config", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[service.ImportResult](t, rec).Imported)
}

func TestAccounts_MalformedSSHConfigKeepsAccount(t *testing.T) {
	h := newHarness(t)
	sshPath := filepath.Join(h.home, ".ssh", "config")
	require.NoError(t, os.MkdirAll(filepath.Dir(sshPath), 0700))
	require.NoError(t, os.WriteFile(sshPath, []byte(sshconfig.EndMarker+"\n"), 0600))

	rec := h.do(t, http.MethodPost, "/api/accounts", map[string]string{
		"name": "work", "user_name": "W", "user_email": "w@x.com",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, errors.ErrMalformedConfig, body.Code)
	assert.NotNil(t, body.Data, "stored account is returned with the error")
}

func TestAccountTypes_CRUD(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/account-types", map[string]string{"name": "job"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	typ := decode[model.AccountType](t, rec)

	rec = h.do(t, http.MethodPost, "/api/account-types", map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, fmt.Sprintf("/api/account-types/%d", typ.ID), map[string]string{"name": "work"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "work", decode[model.AccountType](t, rec).Name)

	rec = h.do(t, http.MethodPost, "/api/accounts", map[string]interface{}{
		"name": "corp", "user_name": "C", "user_email": "c@x.com", "no_key": true, "account_type_id": typ.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodDelete, fmt.Sprintf("/api/account-types/%d", typ.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrInUse, decode[errorBody](t, rec).Code)

	rec = h.do(t, http.MethodGet, "/api/account-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.AccountType](t, rec), 1)
}

func TestProjects_ConfigureAndValidate(t *testing.T) {
	h := newHarness(t)
	acct := h.createAccount(t, "work")

	repo := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".git", "config"),
		[]byte("[remote \"origin\"]\n\turl = https://github.com/acme/app.git\n"), 0644))

	rec := h.do(t, http.MethodPost, "/api/projects", map[string]interface{}{"path": repo})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Project](t, rec)
	assert.Equal(t, "app", p.Name)

	rec = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/configure", p.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no account yet")

	rec = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/configure", p.ID),
		map[string]int64{"account_id": acct.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	configured := decode[model.Project](t, rec)
	assert.True(t, configured.Configured)
	assert.Equal(t, "git@gitacct-work:acme/app.git", configured.RemoteURL)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/validate", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.ValidationReport](t, rec).Valid)

	rec = h.do(t, http.MethodGet, "/api/projects/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ValidationReport](t, rec), 1)

	rec = h.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPatchUpdatesAndValidateByID(t *testing.T) {
	h := newHarness(t)
	acct := h.createAccount(t, "work")

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", acct.ID), map[string]string{
		"user_name": "New Name",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[service.AccountResult](t, rec).Account
	assert.Equal(t, "New Name", updated.UserName)
	assert.Equal(t, "work@example.com", updated.UserEmail)

	rec = h.do(t, http.MethodPost, "/api/account-types", map[string]string{"name": "job"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	typ := decode[model.AccountType](t, rec)
	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/api/account-types/%d", typ.ID), map[string]string{"name": "personal"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "personal", decode[model.AccountType](t, rec).Name)

	repo := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
	rec = h.do(t, http.MethodPost, "/api/projects", map[string]interface{}{"path": repo})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Project](t, rec)

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/api/projects/%d", p.ID), map[string]string{"name": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "renamed", decode[model.Project](t, rec).Name)
	assert.Equal(t, repo, decode[model.Project](t, rec).Path)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/projects/validate/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[model.ValidationReport](t, rec)
	assert.False(t, report.Valid)
	assert.Equal(t, []model.DiscrepancyCode{model.NoAccountAssigned}, report.Codes())
}

func TestProjects_ConfigureNotARepo(t *testing.T) {
	h := newHarness(t)
	acct := h.createAccount(t, "work")

	rec := h.do(t, http.MethodPost, "/api/projects", map[string]interface{}{
		"path": t.TempDir(), "account_id": acct.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Project](t, rec)

	rec = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/configure", p.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, errors.ErrNotGitRepo, decode[errorBody](t, rec).Code)
}

func TestProjects_Scan(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	for _, name := range []string{"one", "two"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name, ".git"), 0755))
	}

	rec := h.do(t, http.MethodPost, "/api/projects/scan", map[string]interface{}{
		"root": root, "depth": 2, "register": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[service.ScanResult](t, rec).Added, 2)

	rec = h.do(t, http.MethodGet, "/api/projects", nil)
	assert.Len(t, decode[[]model.Project](t, rec), 2)
}

func TestEmptyListsAreArrays(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/accounts", "/api/account-types", "/api/projects", "/api/projects/validate"} {
		rec := h.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()), path)
	}
}

func TestNotFoundRoute(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrNotFound, decode[errorBody](t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{errors.ErrNotFound, http.StatusNotFound},
		{errors.ErrInvalid, http.StatusBadRequest},
		{errors.ErrConflict, http.StatusConflict},
		{errors.ErrInUse, http.StatusConflict},
		{errors.ErrKeyCollision, http.StatusConflict},
		{errors.ErrDuplicateHost, http.StatusConflict},
		{errors.ErrNotGitRepo, http.StatusUnprocessableEntity},
		{errors.ErrMalformedConfig, http.StatusUnprocessableEntity},
		{errors.ErrKeygenTimeout, http.StatusGatewayTimeout},
		{errors.ErrKeygen, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(errors.New(tt.code, "x", "")))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(fmt.Errorf("plain")))
}

func TestListenAndServe_Shutdown(t *testing.T) {
	h := newHarness(t)
	srv := New(h.svc)
	srv.Logger = logger.Noop()

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/health_check")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
