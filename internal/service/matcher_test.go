package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/testkit"
)

func TestMatcher_ProviderSubjectWinsOverEmail(t *testing.T) {
	e := newEnv(t)
	byID := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com", Provider: "google", SubjectID: "g1"})
	testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "b@x.com"})

	res, err := NewMatcher(e.accounts).Resolve(context.Background(), "google", "g1", "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ActiveMatch, res.Kind)
	assert.Equal(t, byID.ID, res.Account.ID)
}

func TestMatcher_ActiveEmailBeforeSoftDeleted(t *testing.T) {
	e := newEnv(t)
	deletedAt := time.Now()
	testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com", DeletedAt: &deletedAt})
	live := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com"})

	res, err := NewMatcher(e.accounts).Resolve(context.Background(), "google", "new", "A@X.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ActiveMatch, res.Kind)
	assert.Equal(t, live.ID, res.Account.ID)
}

func TestMatcher_SoftDeletedReachableByEmailOnly(t *testing.T) {
	e := newEnv(t)
	deletedAt := time.Now()
	gone := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "c@x.com", Provider: "google", SubjectID: "g1", DeletedAt: &deletedAt})
	m := NewMatcher(e.accounts)
	ctx := context.Background()

	res, err := m.Resolve(ctx, "google", "g1", "other@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.NoMatch, res.Kind)
	assert.Nil(t, res.Account)

	res, err = m.Resolve(ctx, "google", "g1", "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.SoftDeletedMatch, res.Kind)
	assert.Equal(t, gone.ID, res.Account.ID)
}

type failingFinder struct{ err error }

func (f failingFinder) FindActiveByProviderSubject(context.Context, string, string) (*domain.Account, error) {
	return nil, domain.ErrNotFound
}
func (f failingFinder) FindActiveByEmail(context.Context, string) (*domain.Account, error) {
	return nil, f.err
}
func (f failingFinder) FindSoftDeletedByEmail(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrNotFound
}

func TestMatcher_LookupErrorIsNotNoMatch(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewMatcher(failingFinder{err: boom}).Resolve(context.Background(), "google", "g1", "a@x.com")
	assert.ErrorIs(t, err, boom)
}
