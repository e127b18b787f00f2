package service

import (
	"context"

	"github.com/rileyhilliard/gitacct/internal/model"
)

// CreateAccountType adds a type.
func (s *Service) CreateAccountType(ctx context.Context, name string) (*model.AccountType, error) {
	return s.Store.CreateAccountType(ctx, name)
}

// ListAccountTypes returns every type by name.
func (s *Service) ListAccountTypes(ctx context.Context) ([]model.AccountType, error) {
	return s.Store.ListAccountTypes(ctx)
}

// GetAccountType returns one type.
func (s *Service) GetAccountType(ctx context.Context, id int64) (*model.AccountType, error) {
	return s.Store.GetAccountType(ctx, id)
}

// FindAccountType looks a type up by name.
func (s *Service) FindAccountType(ctx context.Context, name string) (*model.AccountType, error) {
	return s.Store.GetAccountTypeByName(ctx, name)
}

// RenameAccountType renames a type. Accounts keep referencing it.
func (s *Service) RenameAccountType(ctx context.Context, id int64, name string) (*model.AccountType, error) {
	return s.Store.RenameAccountType(ctx, id, name)
}

// DeleteAccountType removes a type no account uses. A type in use is
// rejected with IN_USE.
func (s *Service) DeleteAccountType(ctx context.Context, id int64) error {
	return s.Store.DeleteAccountType(ctx, id)
}
