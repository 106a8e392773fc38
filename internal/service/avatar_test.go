package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/testkit"
)

func TestAvatarReplace_StoresNewBlob(t *testing.T) {
	e := newEnv(t)
	m := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com"})
	s := NewAvatarService(e.accounts, e.store, e.log)

	a, err := s.Replace(context.Background(), m.ID, "me.PNG", 3, strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.AvatarPath, "avatars/"))
	assert.Equal(t, "/storage/"+a.AvatarPath, AvatarURL(e.store, a))

	b, err := afero.ReadFile(e.fs, a.AvatarPath)
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))

	stored, err := e.accounts.FindByID(context.Background(), m.ID, false)
	require.NoError(t, err)
	assert.Equal(t, a.AvatarPath, stored.AvatarPath)
}

func TestAvatarReplace_RemovesPreviousBlob(t *testing.T) {
	e := newEnv(t)
	e.writeBlob(t, "avatars/old.png")
	m := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com", AvatarPath: "avatars/old.png"})

	a, err := NewAvatarService(e.accounts, e.store, e.log).Replace(context.Background(), m.ID, "new.jpg", 3, strings.NewReader("jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, "avatars/old.png", a.AvatarPath)

	ok, err := afero.Exists(e.fs, "avatars/old.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvatarReplace_RejectsBadInput(t *testing.T) {
	e := newEnv(t)
	m := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com"})
	s := NewAvatarService(e.accounts, e.store, e.log)
	ctx := context.Background()

	_, err := s.Replace(ctx, m.ID, "me.gif", 3, strings.NewReader("gif"))
	assert.ErrorIs(t, err, domain.ErrInvalidMedia)
	_, err = s.Replace(ctx, m.ID, "me.png", MaxAvatarBytes+1, strings.NewReader("png"))
	assert.ErrorIs(t, err, domain.ErrInvalidMedia)
	_, err = s.Replace(ctx, "missing", "me.png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvatarReplace_OldBlobDeleteFailureIsFatal(t *testing.T) {
	e := newEnv(t)
	e.writeBlob(t, "avatars/old.png")
	m := testkit.SeedAccount(t, e.db, testkit.AccountSeed{Email: "a@x.com", AvatarPath: "avatars/old.png"})
	s := NewAvatarService(e.accounts, media.NewStore(afero.NewReadOnlyFs(e.fs), "/storage"), e.log)

	_, err := s.Replace(context.Background(), m.ID, "new.png", 3, strings.NewReader("png"))
	assert.ErrorIs(t, err, domain.ErrStorageDelete)

	stored, err := e.accounts.FindByID(context.Background(), m.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "avatars/old.png", stored.AvatarPath)
	assert.Equal(t, 1, e.logs.FilterMessage("previous avatar delete failed").Len())
}

func TestAvatarURL_FallsBackToProviderPicture(t *testing.T) {
	store := media.NewStore(afero.NewMemMapFs(), "/storage")
	assert.Equal(t, "https://pic", AvatarURL(store, &domain.Account{AvatarURL: "https://pic"}))
	assert.Empty(t, AvatarURL(store, &domain.Account{}))
}
