package repo

import (
	"context"

	"gorm.io/gorm"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/feature/account"
)

type DependentRepo struct{ db *gorm.DB }

func NewDependentRepo(db *gorm.DB) *DependentRepo { return &DependentRepo{db: db} }

var _ domain.DependentRepository = (*DependentRepo)(nil)

func (r *DependentRepo) PortfoliosByOwner(ctx context.Context, ownerID string) ([]domain.Portfolio, error) {
	var rows []account.PortfolioModel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	out := make([]domain.Portfolio, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (r *DependentRepo) DeletePortfolio(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&account.LikeModel{}, &account.CommentModel{}, &account.CategoryPortfolioModel{}} {
			if err := tx.Where("portfolio_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&account.PortfolioModel{})
		n = res.RowsAffected
		return res.Error
	})
	return n, classify(err)
}

func (r *DependentRepo) DeleteWorkExperiencesByOwner(ctx context.Context, ownerID string) (int64, error) {
	return r.deleteWhere(ctx, &account.WorkExperienceModel{}, "owner_id = ?", ownerID)
}

func (r *DependentRepo) DeleteLikesByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.deleteWhere(ctx, &account.LikeModel{}, "account_id = ?", accountID)
}

func (r *DependentRepo) DeleteCommentsByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.deleteWhere(ctx, &account.CommentModel{}, "account_id = ?", accountID)
}

func (r *DependentRepo) deleteWhere(ctx context.Context, model any, cond string, arg string) (int64, error) {
	res := r.db.WithContext(ctx).Where(cond, arg).Delete(model)
	return res.RowsAffected, classify(res.Error)
}
