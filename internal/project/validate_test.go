package project

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func initRepo(t *testing.T, config string) string {
	t.Helper()
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0755))
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(repo, ".git", "config"), []byte(config), 0644))
	}
	return repo
}

func workAccount(t *testing.T) *model.Account {
	key := filepath.Join(t.TempDir(), "id_ed25519_work")
	require.NoError(t, os.WriteFile(key, []byte("k"), 0600))
	return &model.Account{ID: 1, Name: "Work", UserName: "Work Me", UserEmail: "w@x.com", SSHKeyPath: key}
}

func authorizedKey(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
}

func TestValidate_Valid(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Work Me\n\temail = w@x.com\n")
	v := &Validator{}

	report := v.Validate(model.Project{ID: 7, Name: "app", Path: repo}, workAccount(t))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Discrepancies)
	assert.Equal(t, int64(7), report.ProjectID)
}

func TestValidate_EmailMismatchIsExactlyUserMismatch(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Work Me\n\temail = personal@x.com\n")
	v := &Validator{}

	report := v.Validate(model.Project{Name: "app", Path: repo}, workAccount(t))
	assert.False(t, report.Valid)
	assert.Equal(t, []model.DiscrepancyCode{model.UserMismatch}, report.Codes())
	assert.Contains(t, report.Discrepancies[0].Detail, "personal@x.com")
	assert.Contains(t, report.Discrepancies[0].Detail, "w@x.com")
}

func TestValidate_NameMismatch(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Someone\n\temail = W@X.com\n")
	report := (&Validator{}).Validate(model.Project{Path: repo}, workAccount(t))

	assert.Equal(t, []model.DiscrepancyCode{model.UserMismatch}, report.Codes())
	assert.Contains(t, report.Discrepancies[0].Detail, "user.name")
	assert.NotContains(t, report.Discrepancies[0].Detail, "user.email", "email compare is case insensitive")
}

func TestValidate_NoUserSection(t *testing.T) {
	repo := initRepo(t, "[core]\n\tbare = false\n")
	report := (&Validator{}).Validate(model.Project{Path: repo}, workAccount(t))
	assert.Equal(t, []model.DiscrepancyCode{model.UserMismatch}, report.Codes())
}

func TestValidate_MalformedConfigIsMismatch(t *testing.T) {
	repo := initRepo(t, "orphan = 1\n")
	report := (&Validator{}).Validate(model.Project{Path: repo}, workAccount(t))

	assert.Equal(t, []model.DiscrepancyCode{model.UserMismatch}, report.Codes())
	assert.Contains(t, report.Discrepancies[0].Detail, "can't be parsed")
}

func TestValidate_MissingGitDirectory(t *testing.T) {
	acct := workAccount(t)
	report := (&Validator{}).Validate(model.Project{Path: t.TempDir()}, acct)

	assert.Equal(t, []model.DiscrepancyCode{model.MissingGitDirectory}, report.Codes())
}

func TestValidate_NoAccount(t *testing.T) {
	repo := initRepo(t, "")
	report := (&Validator{}).Validate(model.Project{Name: "app", Path: repo}, nil)

	assert.Equal(t, []model.DiscrepancyCode{model.NoAccountAssigned}, report.Codes())
}

func TestValidate_NoGitAndNoAccount(t *testing.T) {
	report := (&Validator{}).Validate(model.Project{Path: t.TempDir()}, nil)
	assert.Equal(t, []model.DiscrepancyCode{model.MissingGitDirectory, model.NoAccountAssigned}, report.Codes())
}

func TestValidate_MissingKeyFile(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Work Me\n\temail = w@x.com\n")
	acct := workAccount(t)
	acct.SSHKeyPath = filepath.Join(t.TempDir(), "gone")
	acct.PublicKey = authorizedKey(t)

	report := (&Validator{}).Validate(model.Project{Path: repo}, acct)
	assert.Equal(t, []model.DiscrepancyCode{model.MissingKeyFile}, report.Codes())
	assert.Contains(t, report.Discrepancies[0].Detail, "Work")
}

func TestValidate_KeyHeldByAgent(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Work Me\n\temail = w@x.com\n")
	acct := workAccount(t)
	acct.SSHKeyPath = filepath.Join(t.TempDir(), "gone")
	acct.PublicKey = authorizedKey(t) + " w@x.com"

	v := &Validator{Agent: sshutil.StaticAgent{Keys: []string{acct.PublicKey}}}
	report := v.Validate(model.Project{Path: repo}, acct)
	assert.True(t, report.Valid)
}

func TestValidate_AccountWithoutKey(t *testing.T) {
	repo := initRepo(t, "[user]\n\tname = Work Me\n\temail = w@x.com\n")
	acct := workAccount(t)
	acct.SSHKeyPath = ""

	report := (&Validator{}).Validate(model.Project{Path: repo}, acct)
	assert.True(t, report.Valid)
}

func TestValidate_IsReadOnly(t *testing.T) {
	config := "[user]\n\tname = Other\n"
	repo := initRepo(t, config)

	(&Validator{}).Validate(model.Project{Path: repo}, workAccount(t))

	data, err := os.ReadFile(filepath.Join(repo, ".git", "config"))
	require.NoError(t, err)
	assert.Equal(t, config, string(data))
}
