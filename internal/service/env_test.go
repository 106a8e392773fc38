package service

import (
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"portfolio-accounts/internal/core/keylock"
	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/repo"
	"portfolio-accounts/internal/testkit"
)

type env struct {
	db       *gorm.DB
	accounts *repo.AccountRepo
	deps     *repo.DependentRepo
	fs       afero.Fs
	store    *media.DiskStore
	locker   *keylock.Local
	log      *zap.Logger
	logs     *observer.ObservedLogs
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testkit.NewDB(t)
	core, logs := observer.New(zapcore.InfoLevel)
	fs := afero.NewMemMapFs()
	return &env{
		db:       db,
		accounts: repo.NewAccountRepo(db),
		deps:     repo.NewDependentRepo(db),
		fs:       fs,
		store:    media.NewStore(fs, "/storage"),
		locker:   keylock.NewLocal(),
		log:      zap.New(core),
		logs:     logs,
	}
}

func (e *env) reconciler() *Reconciler {
	return NewReconciler(e.accounts, NewUsernameAllocator(e.accounts, DefaultUsernamePolicy()), e.locker, e.log)
}

func (e *env) lifecycle(mode DestroyMode) *Lifecycle {
	return NewLifecycle(e.accounts, e.deps, e.store, e.locker, mode, e.log)
}

func (e *env) writeBlob(t *testing.T, p string) {
	t.Helper()
	if err := afero.WriteFile(e.fs, p, []byte("blob"), 0o644); err != nil {
		t.Fatal(err)
	}
}
