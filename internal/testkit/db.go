// Package testkit holds shared fixtures for package tests: an in-memory SQLite
// database with the production schema, and row seeding helpers.
package testkit

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio-accounts/internal/feature/account"
	"portfolio-accounts/internal/repo"
	"portfolio-accounts/pkg/utils"
)

// NewDB opens a private in-memory database and migrates it. A single
// connection keeps every statement on the same in-memory schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))
	return db
}

type AccountSeed struct {
	ID         string
	Email      string
	Username   string
	FirstName  string
	Provider   string
	SubjectID  string
	AvatarPath string
	Role       string
	DeletedAt  *time.Time
}

func SeedAccount(t testing.TB, db *gorm.DB, s AccountSeed) *account.AccountModel {
	t.Helper()
	m := &account.AccountModel{
		ID:        s.ID,
		Email:     s.Email,
		Username:  s.Username,
		FirstName: s.FirstName,
		Provider:  s.Provider,
		Role:      s.Role,
	}
	if m.ID == "" {
		m.ID = utils.NewID()
	}
	if m.Username == "" {
		m.Username = "u" + m.ID[:8]
	}
	if m.FirstName == "" {
		m.FirstName = "Test"
	}
	if m.Role == "" {
		m.Role = "user"
	}
	if s.SubjectID != "" {
		m.ProviderSubjectID = &s.SubjectID
	}
	if s.AvatarPath != "" {
		m.AvatarPath = &s.AvatarPath
	}
	if s.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedPortfolio(t testing.TB, db *gorm.DB, ownerID, thumbnail string) *account.PortfolioModel {
	t.Helper()
	m := &account.PortfolioModel{ID: utils.NewID(), OwnerID: ownerID, Title: "portfolio"}
	if thumbnail != "" {
		m.ThumbnailPath = &thumbnail
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedWorkExperience(t testing.TB, db *gorm.DB, ownerID string) *account.WorkExperienceModel {
	t.Helper()
	m := &account.WorkExperienceModel{
		ID: utils.NewID(), OwnerID: ownerID, Company: "Acme", Position: "Engineer",
		StartDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedLike(t testing.TB, db *gorm.DB, accountID, portfolioID string) *account.LikeModel {
	t.Helper()
	m := &account.LikeModel{ID: utils.NewID(), AccountID: accountID, PortfolioID: portfolioID}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedComment(t testing.TB, db *gorm.DB, accountID, portfolioID string) *account.CommentModel {
	t.Helper()
	m := &account.CommentModel{ID: utils.NewID(), AccountID: accountID, PortfolioID: portfolioID, Body: "nice"}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedCategoryLink(t testing.TB, db *gorm.DB, portfolioID string) *account.CategoryPortfolioModel {
	t.Helper()
	cat := &account.CategoryModel{ID: utils.NewID(), Name: "cat-" + utils.NewID()[:8]}
	require.NoError(t, db.Create(cat).Error)
	m := &account.CategoryPortfolioModel{ID: utils.NewID(), PortfolioID: portfolioID, CategoryID: cat.ID}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Count returns the number of rows of model matching cond, including
// soft-deleted account rows.
func Count(t testing.TB, db *gorm.DB, model any, cond string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Unscoped().Model(model).Where(cond, args...).Count(&n).Error)
	return n
}
