package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-accounts/internal/feature/account"
	"portfolio-accounts/internal/repo"
	"portfolio-accounts/internal/testkit"
)

func TestDependentRepo_DeletePortfolioRemovesReferences(t *testing.T) {
	db := testkit.NewDB(t)
	r := repo.NewDependentRepo(db)
	ctx := context.Background()

	owner := testkit.SeedAccount(t, db, testkit.AccountSeed{Email: "owner@x.com"})
	fan := testkit.SeedAccount(t, db, testkit.AccountSeed{Email: "fan@x.com"})
	p := testkit.SeedPortfolio(t, db, owner.ID, "thumbnails/p.png")
	keep := testkit.SeedPortfolio(t, db, owner.ID, "")
	testkit.SeedLike(t, db, fan.ID, p.ID)
	testkit.SeedComment(t, db, fan.ID, p.ID)
	testkit.SeedCategoryLink(t, db, p.ID)
	testkit.SeedLike(t, db, fan.ID, keep.ID)

	n, err := r.DeletePortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Zero(t, testkit.Count(t, db, &account.PortfolioModel{}, "id = ?", p.ID))
	assert.Zero(t, testkit.Count(t, db, &account.LikeModel{}, "portfolio_id = ?", p.ID))
	assert.Zero(t, testkit.Count(t, db, &account.CommentModel{}, "portfolio_id = ?", p.ID))
	assert.Zero(t, testkit.Count(t, db, &account.CategoryPortfolioModel{}, "portfolio_id = ?", p.ID))
	assert.EqualValues(t, 1, testkit.Count(t, db, &account.LikeModel{}, "portfolio_id = ?", keep.ID))
}

func TestDependentRepo_OwnerScopedDeletes(t *testing.T) {
	db := testkit.NewDB(t)
	r := repo.NewDependentRepo(db)
	ctx := context.Background()

	a := testkit.SeedAccount(t, db, testkit.AccountSeed{Email: "a@x.com"})
	b := testkit.SeedAccount(t, db, testkit.AccountSeed{Email: "b@x.com"})
	pb := testkit.SeedPortfolio(t, db, b.ID, "")
	testkit.SeedWorkExperience(t, db, a.ID)
	testkit.SeedWorkExperience(t, db, a.ID)
	testkit.SeedWorkExperience(t, db, b.ID)
	testkit.SeedLike(t, db, a.ID, pb.ID)
	testkit.SeedComment(t, db, a.ID, pb.ID)
	testkit.SeedComment(t, db, b.ID, pb.ID)

	portfolios, err := r.PortfoliosByOwner(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, portfolios, 1)
	assert.Equal(t, pb.ID, portfolios[0].ID)

	n, err := r.DeleteWorkExperiencesByOwner(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = r.DeleteLikesByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.DeleteCommentsByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.EqualValues(t, 1, testkit.Count(t, db, &account.WorkExperienceModel{}, "owner_id = ?", b.ID))
	assert.EqualValues(t, 1, testkit.Count(t, db, &account.CommentModel{}, "account_id = ?", b.ID))
}
