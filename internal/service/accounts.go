package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/keygen"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/sshconfig"
)

// AccountInput describes a new account.
type AccountInput struct {
	Name      string `json:"name"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	TypeID    *int64 `json:"account_type_id,omitempty"`
	TypeName  string `json:"account_type,omitempty"` // resolved to TypeID; created when missing
	Hostname  string `json:"hostname,omitempty"`

	// SSHKeyPath adopts an existing key instead of generating one.
	SSHKeyPath string `json:"ssh_key_path,omitempty"`
	// NoKey creates the account without any key.
	NoKey bool `json:"no_key,omitempty"`

	KeyType    string `json:"key_type,omitempty"`
	KeyBits    int    `json:"key_bits,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

// AccountUpdate changes the non-nil fields of an account.
type AccountUpdate struct {
	Name       *string `json:"name,omitempty"`
	UserName   *string `json:"user_name,omitempty"`
	UserEmail  *string `json:"user_email,omitempty"`
	TypeID     *int64  `json:"account_type_id,omitempty"`
	TypeName   *string `json:"account_type,omitempty"`
	ClearType  bool    `json:"clear_type,omitempty"`
	Hostname   *string `json:"hostname,omitempty"`
	SSHKeyPath *string `json:"ssh_key_path,omitempty"` // "" removes the key reference
}

// DeleteOptions controls DeleteAccount.
type DeleteOptions struct {
	// PurgeKey also deletes the account's key files.
	PurgeKey bool `json:"purge_key"`
}

// AccountResult is returned by account mutations.
type AccountResult struct {
	Account  *model.Account    `json:"account"`
	Key      *keygen.KeyPair   `json:"key,omitempty"`
	Sync     *sshconfig.Result `json:"ssh_sync,omitempty"`
	Detached []model.Project   `json:"detached_projects,omitempty"`
	Purged   []string          `json:"purged_keys,omitempty"`
}

// CreateAccount validates in, sets up its key, stores it, and re-syncs the
// SSH config. A generated key is removed again if the account can't be
// stored.
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (*AccountResult, error) {
	acct := model.Account{
		Name:      strings.TrimSpace(in.Name),
		UserName:  strings.TrimSpace(in.UserName),
		UserEmail: strings.TrimSpace(in.UserEmail),
		TypeID:    in.TypeID,
		Hostname:  strings.TrimSpace(in.Hostname),
	}
	if err := checkIdentity(acct); err != nil {
		return nil, err
	}

	res := &AccountResult{}
	err := s.withLock(ctx, "account add", func() error {
		if err := s.checkNewName(ctx, acct.Name, 0); err != nil {
			return err
		}
		if in.TypeName != "" {
			id, err := s.typeIDFor(ctx, in.TypeName)
			if err != nil {
				return err
			}
			acct.TypeID = &id
		}

		switch {
		case strings.TrimSpace(in.SSHKeyPath) != "":
			if err := s.adoptKey(&acct, in.SSHKeyPath); err != nil {
				return err
			}
		case !in.NoKey:
			kp, err := s.generateKey(ctx, acct, in)
			if err != nil {
				return err
			}
			acct.SSHKeyPath = kp.PrivatePath
			acct.PublicKey = kp.PublicKey
			res.Key = kp
		}

		if err := s.Store.CreateAccount(ctx, &acct); err != nil {
			if res.Key != nil {
				_ = keygen.RemoveKeyPair(res.Key.PrivatePath)
			}
			return err
		}
		res.Account = &acct
		s.log().Info("created account %q", acct.Name)

		sync, err := s.syncLocked(ctx)
		res.Sync = sync
		return err
	})
	if err != nil {
		return res.orNil(), err
	}
	return res, nil
}

// orNil keeps a stored account visible to the caller when a later step
// (the SSH sync) fails.
func (r *AccountResult) orNil() *AccountResult {
	if r.Account == nil {
		return nil
	}
	return r
}

// UpdateAccount applies up to account id. Projects bound to the account
// lose their configured flag when its identity or alias changes, and the
// SSH config is re-synced.
func (s *Service) UpdateAccount(ctx context.Context, id int64, up AccountUpdate) (*AccountResult, error) {
	res := &AccountResult{}
	err := s.withLock(ctx, "account update", func() error {
		acct, err := s.Store.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		before := *acct

		if up.Name != nil {
			acct.Name = strings.TrimSpace(*up.Name)
		}
		if up.UserName != nil {
			acct.UserName = strings.TrimSpace(*up.UserName)
		}
		if up.UserEmail != nil {
			acct.UserEmail = strings.TrimSpace(*up.UserEmail)
		}
		if up.Hostname != nil {
			acct.Hostname = strings.TrimSpace(*up.Hostname)
		}
		switch {
		case up.ClearType:
			acct.TypeID = nil
		case up.TypeName != nil:
			tid, err := s.typeIDFor(ctx, *up.TypeName)
			if err != nil {
				return err
			}
			acct.TypeID = &tid
		case up.TypeID != nil:
			acct.TypeID = up.TypeID
		}
		if up.SSHKeyPath != nil {
			if strings.TrimSpace(*up.SSHKeyPath) == "" {
				acct.SSHKeyPath, acct.PublicKey = "", ""
			} else if err := s.adoptKey(acct, *up.SSHKeyPath); err != nil {
				return err
			}
		}

		if err := checkIdentity(*acct); err != nil {
			return err
		}
		if acct.Name != before.Name {
			if err := s.checkNewName(ctx, acct.Name, acct.ID); err != nil {
				return err
			}
		}

		if err := s.Store.UpdateAccount(ctx, acct); err != nil {
			return err
		}
		res.Account = acct

		if identityChanged(before, *acct) {
			if err := s.unconfigureProjects(ctx, acct.ID); err != nil {
				return err
			}
		}

		sync, err := s.syncLocked(ctx)
		res.Sync = sync
		return err
	})
	if err != nil {
		return res.orNil(), err
	}
	return res, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return s.Store.GetAccount(ctx, id)
}

// FindAccount looks an account up by name, falling back to a numeric ID.
func (s *Service) FindAccount(ctx context.Context, ref string) (*model.Account, error) {
	acct, err := s.Store.GetAccountByName(ctx, ref)
	if err == nil || !errors.IsCode(err, errors.ErrNotFound) {
		return acct, err
	}
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		return s.Store.GetAccount(ctx, id)
	}
	return nil, err
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.Store.ListAccounts(ctx)
}

// DeleteAccount removes an account. Its projects are detached, its host
// block leaves the SSH config, and its key files are deleted only with
// PurgeKey.
func (s *Service) DeleteAccount(ctx context.Context, id int64, opts DeleteOptions) (*AccountResult, error) {
	res := &AccountResult{}
	err := s.withLock(ctx, "account delete", func() error {
		acct, err := s.Store.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		detached, err := s.Store.DeleteAccount(ctx, id)
		if err != nil {
			return err
		}
		res.Account = acct
		res.Detached = detached
		s.log().Info("deleted account %q (%d project(s) detached)", acct.Name, len(detached))

		sync, err := s.syncLocked(ctx)
		res.Sync = sync
		if err != nil {
			return err
		}

		if opts.PurgeKey && acct.HasKey() {
			priv := fsutil.ExpandHome(acct.SSHKeyPath)
			if err := keygen.RemoveKeyPair(priv); err != nil {
				return err
			}
			res.Purged = []string{priv, priv + ".pub"}
		}
		return nil
	})
	if err != nil {
		return res.orNil(), err
	}
	return res, nil
}

func checkIdentity(a model.Account) error {
	switch {
	case a.Name == "":
		return errors.New(errors.ErrInvalid, "An account needs a name", "")
	case a.UserName == "":
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("Account %q needs a git user name", a.Name), "")
	case a.UserEmail == "":
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("Account %q needs a git user email", a.Name), "")
	case !strings.Contains(a.UserEmail, "@"):
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("%q doesn't look like an email address", a.UserEmail), "")
	}
	return nil
}

// checkNewName rejects names that are taken or whose host alias collides
// with another account's. self is the account being renamed, 0 on create.
func (s *Service) checkNewName(ctx context.Context, name string, self int64) error {
	alias := model.HostAlias(s.SSH.Prefix, name)
	if alias == s.SSH.Prefix {
		return errors.New(errors.ErrInvalid,
			fmt.Sprintf("Account name %q has no letters or digits to build a host alias from", name),
			"Use a name like 'work' or 'personal'.")
	}

	existing, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.ID == self {
			continue
		}
		if strings.EqualFold(a.Name, name) {
			return errors.New(errors.ErrConflict,
				fmt.Sprintf("Account %q already exists", a.Name), "Pick a different name.")
		}
		if s.HostAlias(a) == alias {
			return errors.WrapWithCode(
				&sshconfig.DuplicateAliasError{Alias: alias, First: a.Name, Second: name},
				errors.ErrDuplicateHost,
				fmt.Sprintf("Account %q would share host alias %q with %q", name, alias, a.Name),
				"Pick a name that differs in letters or digits.")
		}
	}
	return nil
}

func (s *Service) typeIDFor(ctx context.Context, name string) (int64, error) {
	t, err := s.Store.GetAccountTypeByName(ctx, strings.TrimSpace(name))
	if err == nil {
		return t.ID, nil
	}
	if !errors.IsCode(err, errors.ErrNotFound) {
		return 0, err
	}
	t, err = s.Store.CreateAccountType(ctx, name)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Service) adoptKey(acct *model.Account, path string) error {
	priv := fsutil.ExpandHome(strings.TrimSpace(path))
	if abs, err := filepath.Abs(priv); err == nil {
		priv = abs
	}
	if err := keygen.CheckKeyPair(priv); err != nil {
		return err
	}
	text, _, err := keygen.ReadPublicKey(priv + ".pub")
	if err != nil {
		return err
	}
	if _, err := keygen.Fingerprint(text); err != nil {
		return errors.WrapWithCode(err, errors.ErrInvalid,
			fmt.Sprintf("%s.pub isn't a valid public key", priv), "")
	}
	acct.SSHKeyPath = priv
	acct.PublicKey = text
	return nil
}

func (s *Service) generateKey(ctx context.Context, acct model.Account, in AccountInput) (*keygen.KeyPair, error) {
	req := keygen.Request{
		Name:       acct.Name,
		Email:      acct.UserEmail,
		Type:       in.KeyType,
		Bits:       in.KeyBits,
		Passphrase: in.Passphrase,
	}
	if req.Type == "" {
		req.Type = s.KeyType
		if req.Bits == 0 && req.Type == model.KeyTypeRSA {
			req.Bits = s.KeyBits
		}
	}
	return s.Keygen.Generate(ctx, req)
}

func identityChanged(before, after model.Account) bool {
	return before.Name != after.Name ||
		before.UserName != after.UserName ||
		!strings.EqualFold(before.UserEmail, after.UserEmail) ||
		before.Hostname != after.Hostname ||
		before.SSHKeyPath != after.SSHKeyPath
}

func (s *Service) unconfigureProjects(ctx context.Context, accountID int64) error {
	projects, err := s.Store.ListProjectsForAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for i := range projects {
		if !projects[i].Configured {
			continue
		}
		projects[i].Configured = false
		if err := s.Store.UpdateProject(ctx, &projects[i]); err != nil {
			return err
		}
	}
	return nil
}
