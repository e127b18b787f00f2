package store

import (
	"time"

	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/uptrace/bun"
)

// accountTypeRow maps the account_types table.
type accountTypeRow struct {
	bun.BaseModel `bun:"table:account_types"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Name          string `bun:"name,notnull,unique"`
}

// accountRow maps the accounts table.
type accountRow struct {
	bun.BaseModel `bun:"table:accounts"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Name          string    `bun:"name,notnull,unique"`
	UserName      string    `bun:"user_name,notnull"`
	UserEmail     string    `bun:"user_email,notnull"`
	TypeID        *int64    `bun:"account_type_id"`
	SSHKeyPath    string    `bun:"ssh_key_path,notnull"`
	PublicKey     string    `bun:"public_key,notnull"`
	Hostname      string    `bun:"hostname,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`

	Type *accountTypeRow `bun:"rel:belongs-to,join:account_type_id=id"`
}

// projectRow maps the projects table.
type projectRow struct {
	bun.BaseModel `bun:"table:projects"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Name          string    `bun:"name,notnull"`
	Path          string    `bun:"path,notnull,unique"`
	AccountID     *int64    `bun:"account_id"`
	RemoteURL     string    `bun:"remote_url,notnull"`
	RemoteName    string    `bun:"remote_name,notnull"`
	Configured    bool      `bun:"configured,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func accountTypeFromRow(r accountTypeRow) model.AccountType {
	return model.AccountType{ID: r.ID, Name: r.Name}
}

func accountFromRow(r accountRow) model.Account {
	a := model.Account{
		ID:         r.ID,
		Name:       r.Name,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
		TypeID:     r.TypeID,
		SSHKeyPath: r.SSHKeyPath,
		PublicKey:  r.PublicKey,
		Hostname:   r.Hostname,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Type != nil && r.Type.ID != 0 {
		t := accountTypeFromRow(*r.Type)
		a.Type = &t
	}
	return a
}

func accountToRow(a model.Account) *accountRow {
	return &accountRow{
		ID:         a.ID,
		Name:       a.Name,
		UserName:   a.UserName,
		UserEmail:  a.UserEmail,
		TypeID:     a.TypeID,
		SSHKeyPath: a.SSHKeyPath,
		PublicKey:  a.PublicKey,
		Hostname:   a.Hostname,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func projectFromRow(r projectRow) model.Project {
	return model.Project{
		ID:         r.ID,
		Name:       r.Name,
		Path:       r.Path,
		AccountID:  r.AccountID,
		RemoteURL:  r.RemoteURL,
		RemoteName: r.RemoteName,
		Configured: r.Configured,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func projectToRow(p model.Project) *projectRow {
	return &projectRow{
		ID:         p.ID,
		Name:       p.Name,
		Path:       p.Path,
		AccountID:  p.AccountID,
		RemoteURL:  p.RemoteURL,
		RemoteName: p.RemoteName,
		Configured: p.Configured,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
