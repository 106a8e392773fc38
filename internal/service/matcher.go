package service

import (
	"context"

	"portfolio-accounts/internal/domain"
)

// AccountFinder is the read side of the account repository the matcher needs.
type AccountFinder interface {
	FindActiveByProviderSubject(ctx context.Context, provider, subjectID string) (*domain.Account, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindSoftDeletedByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// Matcher maps a verified external identity to at most one account. First hit
// wins: active by provider subject, active by email, soft-deleted by email.
// Soft-deleted accounts are deliberately unreachable by subject id.
type Matcher struct {
	accounts AccountFinder
}

func NewMatcher(accounts AccountFinder) *Matcher { return &Matcher{accounts: accounts} }

func (m *Matcher) Resolve(ctx context.Context, provider, subjectID, email string) (domain.MatchResult, error) {
	email = domain.NormalizeEmail(email)

	if subjectID != "" {
		a, err := m.accounts.FindActiveByProviderSubject(ctx, provider, subjectID)
		if hit, res, err := found(a, err, domain.ActiveMatch); hit || err != nil {
			return res, err
		}
	}
	if email == "" {
		return domain.MatchResult{Kind: domain.NoMatch}, nil
	}

	a, err := m.accounts.FindActiveByEmail(ctx, email)
	if hit, res, err := found(a, err, domain.ActiveMatch); hit || err != nil {
		return res, err
	}

	a, err = m.accounts.FindSoftDeletedByEmail(ctx, email)
	if hit, res, err := found(a, err, domain.SoftDeletedMatch); hit || err != nil {
		return res, err
	}
	return domain.MatchResult{Kind: domain.NoMatch}, nil
}

func found(a *domain.Account, err error, kind domain.MatchKind) (bool, domain.MatchResult, error) {
	switch {
	case domain.IsNotFound(err):
		return false, domain.MatchResult{}, nil
	case err != nil:
		return false, domain.MatchResult{}, err
	default:
		return true, domain.MatchResult{Kind: kind, Account: a}, nil
	}
}
