package service

import (
	"context"

	"portfolio-accounts/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Directory is the read side used by the profile and admin endpoints.
type Directory struct {
	accounts domain.AccountRepository
}

func NewDirectory(accounts domain.AccountRepository) *Directory {
	return &Directory{accounts: accounts}
}

// Get returns an active account.
func (d *Directory) Get(ctx context.Context, id string) (*domain.Account, error) {
	return d.accounts.FindByID(ctx, id, false)
}

func (d *Directory) List(ctx context.Context, f domain.ListFilter) ([]domain.Account, int64, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return d.accounts.List(ctx, f)
}
