package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/uptrace/bun"
)

// CreateAccountType adds a type. Names are unique.
func (s *Store) CreateAccountType(ctx context.Context, name string) (*model.AccountType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrInvalid, "An account type needs a name", "")
	}
	row := &accountTypeRow{Name: name}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("account type %q", name))
	}
	t := accountTypeFromRow(*row)
	return &t, nil
}

// ListAccountTypes returns every type ordered by name.
func (s *Store) ListAccountTypes(ctx context.Context) ([]model.AccountType, error) {
	var rows []accountTypeRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, mapErr(err, "account types")
	}
	out := make([]model.AccountType, 0, len(rows))
	for _, r := range rows {
		out = append(out, accountTypeFromRow(r))
	}
	return out, nil
}

// GetAccountType returns the type with id.
func (s *Store) GetAccountType(ctx context.Context, id int64) (*model.AccountType, error) {
	var row accountTypeRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("account type %d", id))
	}
	t := accountTypeFromRow(row)
	return &t, nil
}

// GetAccountTypeByName returns the type called name.
func (s *Store) GetAccountTypeByName(ctx context.Context, name string) (*model.AccountType, error) {
	var row accountTypeRow
	if err := s.db.NewSelect().Model(&row).Where("name = ?", name).Scan(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("account type %q", name))
	}
	t := accountTypeFromRow(row)
	return &t, nil
}

// RenameAccountType changes a type's name.
func (s *Store) RenameAccountType(ctx context.Context, id int64, name string) (*model.AccountType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrInvalid, "An account type needs a name", "")
	}
	res, err := s.db.NewUpdate().Model((*accountTypeRow)(nil)).
		Set("name = ?", name).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("account type %q", name))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, mapErr(errNoRows, fmt.Sprintf("account type %d", id))
	}
	return &model.AccountType{ID: id, Name: name}, nil
}

// DeleteAccountType removes a type. A type still used by an account is
// not deleted: it fails with IN_USE.
func (s *Store) DeleteAccountType(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row accountTypeRow
		if err := tx.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
			return mapErr(err, fmt.Sprintf("account type %d", id))
		}

		used, err := tx.NewSelect().Model((*accountRow)(nil)).Where("account_type_id = ?", id).Count(ctx)
		if err != nil {
			return mapErr(err, fmt.Sprintf("account type %q", row.Name))
		}
		if used > 0 {
			return errors.New(errors.ErrInUse,
				fmt.Sprintf("Account type %q is used by %d account(s)", row.Name, used),
				"Move those accounts to another type first.")
		}

		if _, err := tx.NewDelete().Model((*accountTypeRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return mapErr(err, fmt.Sprintf("account type %q", row.Name))
		}
		return nil
	})
}

// CreateAccount inserts a and fills in its ID and timestamps.
func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	row := accountToRow(*a)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapErr(err, fmt.Sprintf("account %q", a.Name))
	}
	a.ID = row.ID
	return s.attachType(ctx, a)
}

// UpdateAccount writes every field of a except CreatedAt.
func (s *Store) UpdateAccount(ctx context.Context, a *model.Account) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(accountToRow(*a)).
		ExcludeColumn("created_at").WherePK().Exec(ctx)
	if err != nil {
		return mapErr(err, fmt.Sprintf("account %q", a.Name))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapErr(errNoRows, fmt.Sprintf("account %d", a.ID))
	}
	return s.attachType(ctx, a)
}

func (s *Store) attachType(ctx context.Context, a *model.Account) error {
	a.Type = nil
	if a.TypeID == nil {
		return nil
	}
	t, err := s.GetAccountType(ctx, *a.TypeID)
	if err != nil {
		return err
	}
	a.Type = t
	return nil
}

// GetAccount returns the account with id, its type attached.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Relation("Type").Where("?TableAlias.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("account %d", id))
	}
	a := accountFromRow(row)
	return &a, nil
}

// GetAccountByName returns the account called name.
func (s *Store) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Relation("Type").Where("?TableAlias.name = ?", name).Scan(ctx)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("account %q", name))
	}
	a := accountFromRow(row)
	return &a, nil
}

// ListAccounts returns every account in creation order. Sync output follows
// this order, so it must be stable.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var rows []accountRow
	if err := s.db.NewSelect().Model(&rows).Relation("Type").OrderExpr("?TableAlias.id ASC").Scan(ctx); err != nil {
		return nil, mapErr(err, "accounts")
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, accountFromRow(r))
	}
	return out, nil
}

// DeleteAccount removes an account and detaches its projects, which lose
// their account and their configured flag. It returns the detached
// projects.
func (s *Store) DeleteAccount(ctx context.Context, id int64) ([]model.Project, error) {
	var detached []model.Project
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row accountRow
		if err := tx.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
			return mapErr(err, fmt.Sprintf("account %d", id))
		}

		var projects []projectRow
		if err := tx.NewSelect().Model(&projects).Where("account_id = ?", id).OrderExpr("id ASC").Scan(ctx); err != nil {
			return mapErr(err, "projects")
		}

		now := time.Now().UTC()
		if len(projects) > 0 {
			_, err := tx.NewUpdate().Model((*projectRow)(nil)).
				Set("account_id = NULL").
				Set("configured = ?", false).
				Set("updated_at = ?", now).
				Where("account_id = ?", id).
				Exec(ctx)
			if err != nil {
				return mapErr(err, fmt.Sprintf("projects of account %q", row.Name))
			}
		}

		if _, err := tx.NewDelete().Model((*accountRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return mapErr(err, fmt.Sprintf("account %q", row.Name))
		}

		for _, p := range projects {
			p.AccountID = nil
			p.Configured = false
			p.UpdatedAt = now
			detached = append(detached, projectFromRow(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detached, nil
}
