package domain

import "context"

type ListFilter struct {
	Offset      int
	Limit       int
	Query       string
	WithDeleted bool
}

// AccountRepository is the only path to account rows. Lookups return
// ErrNotFound when nothing matches; writes return ErrConflict on uniqueness
// violations.
type AccountRepository interface {
	FindByID(ctx context.Context, id string, includeDeleted bool) (*Account, error)
	FindActiveByProviderSubject(ctx context.Context, provider, subjectID string) (*Account, error)
	FindActiveByEmail(ctx context.Context, email string) (*Account, error)
	FindSoftDeletedByEmail(ctx context.Context, email string) (*Account, error)
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]Account, int64, error)

	Create(ctx context.Context, a *Account) error
	// LinkProvider sets provider and subject only when no subject is recorded.
	LinkProvider(ctx context.Context, id, provider, subjectID string) (bool, error)
	// Restore clears the soft-delete marker of id and records the provider
	// link and username. It returns ErrRestoreConflict when another active
	// account holds the email, and false when the row was not soft-deleted.
	Restore(ctx context.Context, in RestoreInput) (bool, error)
	UpdateAvatarPath(ctx context.Context, id, path string) error
	SoftDelete(ctx context.Context, id string) (bool, error)
	HardDelete(ctx context.Context, id string) (int64, error)
}

type RestoreInput struct {
	ID        string
	Email     string
	Provider  string
	SubjectID string
	Username  string
}

// DependentRepository performs the explicit, eager dependent-record operations
// used by the account cascade. Every delete reports the rows affected.
type DependentRepository interface {
	PortfoliosByOwner(ctx context.Context, ownerID string) ([]Portfolio, error)
	// DeletePortfolio removes the portfolio row together with the likes,
	// comments and category links that point at it.
	DeletePortfolio(ctx context.Context, id string) (int64, error)
	DeleteWorkExperiencesByOwner(ctx context.Context, ownerID string) (int64, error)
	DeleteLikesByAccount(ctx context.Context, accountID string) (int64, error)
	DeleteCommentsByAccount(ctx context.Context, accountID string) (int64, error)
}
