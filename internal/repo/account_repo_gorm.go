package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/feature/account"
	"portfolio-accounts/pkg/utils"
)

// activeAccounts and softDeletedAccounts are the only lifecycle predicates.
// Every query below starts Unscoped and applies one of them explicitly.
func activeAccounts(db *gorm.DB) *gorm.DB      { return db.Where("deleted_at IS NULL") }
func softDeletedAccounts(db *gorm.DB) *gorm.DB { return db.Where("deleted_at IS NOT NULL") }

type AccountRepo struct{ db *gorm.DB }

func NewAccountRepo(db *gorm.DB) *AccountRepo { return &AccountRepo{db: db} }

var _ domain.AccountRepository = (*AccountRepo)(nil)

func accounts(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Unscoped().Model(&account.AccountModel{})
}

func (r *AccountRepo) first(q *gorm.DB) (*domain.Account, error) {
	var m account.AccountModel
	if err := q.Take(&m).Error; err != nil {
		return nil, classify(err)
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id string, includeDeleted bool) (*domain.Account, error) {
	q := accounts(ctx, r.db).Where("id = ?", id)
	if !includeDeleted {
		q = q.Scopes(activeAccounts)
	}
	return r.first(q)
}

func (r *AccountRepo) FindActiveByProviderSubject(ctx context.Context, provider, subjectID string) (*domain.Account, error) {
	return r.first(accounts(ctx, r.db).Scopes(activeAccounts).
		Where("provider = ? AND provider_subject_id = ?", provider, subjectID))
}

func (r *AccountRepo) FindActiveByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.first(accounts(ctx, r.db).Scopes(activeAccounts).
		Where("email = ?", domain.NormalizeEmail(email)))
}

// FindSoftDeletedByEmail returns the most recently deleted account when several
// share the email.
func (r *AccountRepo) FindSoftDeletedByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.first(accounts(ctx, r.db).Scopes(softDeletedAccounts).
		Where("email = ?", domain.NormalizeEmail(email)).
		Order("deleted_at DESC").Order("id"))
}

func (r *AccountRepo) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var n int64
	q := accounts(ctx, r.db).Scopes(activeAccounts).Where("username = ?", username)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (r *AccountRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Account, int64, error) {
	q := accounts(ctx, r.db)
	if !f.WithDeleted {
		q = q.Scopes(activeAccounts)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR username LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}
	var rows []account.AccountModel
	if err := q.Order("created_at desc").Offset(f.Offset).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, 0, classify(err)
	}
	out := make([]domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = utils.NewID()
	}
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	a.Email = domain.NormalizeEmail(a.Email)
	m := account.AccountFromDomain(a)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return classify(err)
	}
	*a = *m.ToDomain()
	return nil
}

func (r *AccountRepo) LinkProvider(ctx context.Context, id, provider, subjectID string) (bool, error) {
	res := accounts(ctx, r.db).Scopes(activeAccounts).
		Where("id = ? AND provider_subject_id IS NULL", id).
		Updates(map[string]any{"provider": provider, "provider_subject_id": subjectID})
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *AccountRepo) Restore(ctx context.Context, in domain.RestoreInput) (bool, error) {
	restored := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holders int64
		if err := accounts(ctx, tx).Scopes(activeAccounts).
			Where("email = ? AND id <> ?", domain.NormalizeEmail(in.Email), in.ID).
			Count(&holders).Error; err != nil {
			return err
		}
		if holders > 0 {
			return domain.ErrRestoreConflict
		}
		res := accounts(ctx, tx).Scopes(softDeletedAccounts).
			Where("id = ?", in.ID).
			Updates(map[string]any{
				"deleted_at":          nil,
				"provider":            in.Provider,
				"provider_subject_id": in.SubjectID,
				"username":            in.Username,
			})
		if res.Error != nil {
			return res.Error
		}
		restored = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRestoreConflict) {
			return false, err
		}
		return false, classify(err)
	}
	return restored, nil
}

// UpdateAvatarPath applies to soft-deleted rows too, so a destroy that keeps
// the row can clear a path whose blob is gone. An empty path stores NULL.
func (r *AccountRepo) UpdateAvatarPath(ctx context.Context, id, path string) error {
	var v any
	if path != "" {
		v = path
	}
	res := accounts(ctx, r.db).Where("id = ?", id).Update("avatar_path", v)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SoftDelete reports false when the account was already soft-deleted.
func (r *AccountRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	res := accounts(ctx, r.db).Scopes(activeAccounts).Where("id = ?", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return false, classify(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id, true); err != nil {
		return false, err
	}
	return false, nil
}

func (r *AccountRepo) HardDelete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&account.AccountModel{})
	return res.RowsAffected, classify(res.Error)
}
