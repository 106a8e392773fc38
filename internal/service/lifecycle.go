package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portfolio-accounts/internal/core/keylock"
	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/media"
)

// DestroyMode decides what happens to the account row itself once its
// dependents are gone.
type DestroyMode string

const (
	DestroyHard DestroyMode = "hard"
	DestroySoft DestroyMode = "soft"
)

func ParseDestroyMode(s string) (DestroyMode, error) {
	switch DestroyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DestroyHard:
		return DestroyHard, nil
	case DestroySoft:
		return DestroySoft, nil
	default:
		return "", fmt.Errorf("unknown destroy mode %q", s)
	}
}

type DestroyReport struct {
	AccountID       string `json:"accountId"`
	AvatarDeleted   bool   `json:"avatarDeleted"`
	Thumbnails      int    `json:"thumbnails"`
	BlobFailures    int    `json:"blobFailures"`
	Portfolios      int64  `json:"portfolios"`
	WorkExperiences int64  `json:"workExperiences"`
	Likes           int64  `json:"likes"`
	Comments        int64  `json:"comments"`
	AccountRows     int64  `json:"accountRows"`
}

type Lifecycle struct {
	accounts domain.AccountRepository
	deps     domain.DependentRepository
	media    media.Store
	locker   keylock.Locker
	mode     DestroyMode
	log      *zap.Logger
}

func NewLifecycle(accounts domain.AccountRepository, deps domain.DependentRepository, store media.Store,
	locker keylock.Locker, mode DestroyMode, log *zap.Logger) *Lifecycle {
	if locker == nil {
		locker = keylock.NewLocal()
	}
	if mode == "" {
		mode = DestroyHard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{accounts: accounts, deps: deps, media: store, locker: locker, mode: mode, log: log}
}

// DestroyAccount removes an account (active or soft-deleted) with every record
// it owns. Blob deletion failures are logged and counted but never stop the
// cascade; any database failure aborts it.
func (l *Lifecycle) DestroyAccount(ctx context.Context, accountID string) (DestroyReport, error) {
	rep := DestroyReport{AccountID: accountID}

	a, err := l.accounts.FindByID(ctx, accountID, true)
	if err != nil {
		return rep, l.fail(accountID, "load account", err)
	}

	unlock, err := keylock.LockAll(ctx, l.locker, emailLockKey(a.Email))
	if err != nil {
		if ctx.Err() != nil {
			return rep, l.fail(accountID, "lock", ctx.Err())
		}
		l.log.Warn("account lock unavailable; destroying without it",
			zap.String("account_id", accountID), zap.Error(err))
	} else {
		defer unlock()
	}

	if a.AvatarPath != "" {
		rep.AvatarDeleted = l.deleteBlob(ctx, &rep, "avatar", a.AvatarPath)
	}

	portfolios, err := l.deps.PortfoliosByOwner(ctx, a.ID)
	if err != nil {
		return rep, l.fail(accountID, "list portfolios", err)
	}
	for _, p := range portfolios {
		if p.ThumbnailPath != "" && l.deleteBlob(ctx, &rep, "thumbnail", p.ThumbnailPath) {
			rep.Thumbnails++
		}
		n, err := l.deps.DeletePortfolio(ctx, p.ID)
		if err != nil {
			return rep, l.fail(accountID, "delete portfolio "+p.ID, err)
		}
		rep.Portfolios += n
	}

	if rep.WorkExperiences, err = l.deps.DeleteWorkExperiencesByOwner(ctx, a.ID); err != nil {
		return rep, l.fail(accountID, "delete work experiences", err)
	}
	if rep.Likes, err = l.deps.DeleteLikesByAccount(ctx, a.ID); err != nil {
		return rep, l.fail(accountID, "delete likes", err)
	}
	if rep.Comments, err = l.deps.DeleteCommentsByAccount(ctx, a.ID); err != nil {
		return rep, l.fail(accountID, "delete comments", err)
	}

	switch l.mode {
	case DestroySoft:
		if a.AvatarPath != "" {
			if err := l.accounts.UpdateAvatarPath(ctx, a.ID, ""); err != nil {
				return rep, l.fail(accountID, "clear avatar", err)
			}
		}
		changed, err := l.accounts.SoftDelete(ctx, a.ID)
		if err != nil {
			return rep, l.fail(accountID, "soft delete account", err)
		}
		if changed {
			rep.AccountRows = 1
		}
	default:
		if rep.AccountRows, err = l.accounts.HardDelete(ctx, a.ID); err != nil {
			return rep, l.fail(accountID, "delete account", err)
		}
	}

	metrics.DestroyTotal.WithLabelValues("ok").Inc()
	l.log.Info("account destroyed",
		zap.String("account_id", accountID),
		zap.String("mode", string(l.mode)),
		zap.Int64("portfolios", rep.Portfolios),
		zap.Int64("work_experiences", rep.WorkExperiences),
		zap.Int64("likes", rep.Likes),
		zap.Int64("comments", rep.Comments),
		zap.Int("blob_failures", rep.BlobFailures))
	return rep, nil
}

// SoftDelete marks an account deleted. Repeating it is a no-op.
func (l *Lifecycle) SoftDelete(ctx context.Context, accountID string) error {
	changed, err := l.accounts.SoftDelete(ctx, accountID)
	if err != nil {
		return fmt.Errorf("soft delete account %s: %w", accountID, err)
	}
	if changed {
		l.log.Info("account soft-deleted", zap.String("account_id", accountID))
	}
	return nil
}

func (l *Lifecycle) deleteBlob(ctx context.Context, rep *DestroyReport, kind, path string) bool {
	if err := l.media.Delete(ctx, path); err != nil {
		rep.BlobFailures++
		metrics.MediaDeleteFailures.WithLabelValues(kind).Inc()
		l.log.Error("media delete failed; continuing",
			zap.String("account_id", rep.AccountID),
			zap.String("kind", kind),
			zap.String("path", path),
			zap.Error(err))
		return false
	}
	return true
}

func (l *Lifecycle) fail(accountID, step string, err error) error {
	metrics.DestroyTotal.WithLabelValues(outcomeFailed).Inc()
	l.log.Error("account destroy aborted",
		zap.String("account_id", accountID), zap.String("step", step), zap.Error(err))
	return fmt.Errorf("destroy account %s: %s: %w", accountID, step, err)
}
