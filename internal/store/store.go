// Package store persists accounts, account types, and projects in SQLite
// through bun. It is the only package that knows the schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store is the SQLite-backed record store.
type Store struct {
	db  *bun.DB
	dsn string
}

// Open opens (creating if needed) the database at path and brings the
// schema up to date. Use MemoryDSN for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrFilesystem,
				fmt.Sprintf("Couldn't create the directory for %s", path), "")
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't open database %s", path), "")
	}
	// SQLite serializes writers anyway, and an in-memory database exists
	// only on the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't configure database %s", path), "")
	}

	s := &Store{db: bun.NewDB(sqlDB, sqlitedialect.New()), dsn: path}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database location Open was given.
func (s *Store) Path() string {
	return s.dsn
}

func (s *Store) migrate(ctx context.Context) error {
	steps := []func() error{
		func() error {
			_, err := s.db.NewCreateTable().Model((*accountTypeRow)(nil)).IfNotExists().Exec(ctx)
			return err
		},
		func() error {
			_, err := s.db.NewCreateTable().Model((*accountRow)(nil)).IfNotExists().
				ForeignKey(`("account_type_id") REFERENCES "account_types" ("id")`).
				Exec(ctx)
			return err
		},
		func() error {
			_, err := s.db.NewCreateTable().Model((*projectRow)(nil)).IfNotExists().
				ForeignKey(`("account_id") REFERENCES "accounts" ("id")`).
				Exec(ctx)
			return err
		},
		func() error {
			_, err := s.db.NewCreateIndex().Model((*projectRow)(nil)).IfNotExists().
				Index("projects_account_id_idx").Column("account_id").Exec(ctx)
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errors.WrapWithCode(err, errors.ErrStore,
				"Couldn't prepare the database schema",
				"The database file may be damaged. Move it aside and try again.")
		}
	}
	return nil
}

// mapErr turns driver errors into coded errors. what names the record for
// the message, e.g. `account 3`.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New(errors.ErrNotFound,
			fmt.Sprintf("No %s", what), "List what exists with the matching list command.")
	}
	le := strings.ToLower(err.Error())
	switch {
	case strings.Contains(le, "unique"):
		return errors.WrapWithCode(err, errors.ErrConflict,
			fmt.Sprintf("%s already exists", capitalize(what)), "Pick a different name or path.")
	case strings.Contains(le, "foreign key"):
		return errors.WrapWithCode(err, errors.ErrInvalid,
			fmt.Sprintf("%s references a record that doesn't exist", capitalize(what)), "")
	}
	return errors.WrapWithCode(err, errors.ErrStore,
		fmt.Sprintf("Database error on %s", what), "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
