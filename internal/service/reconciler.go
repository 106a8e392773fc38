package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"portfolio-accounts/internal/core/keylock"
	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/domain"
)

const (
	outcomeActive   = "active"
	outcomeLinked   = "linked"
	outcomeRestored = "restored"
	outcomeCreated  = "created"
	outcomeFailed   = "failed"
)

// A shared login outlives the request that started it, bounded by this.
const reconcileTimeout = 30 * time.Second

// Reconciler turns a verified external identity into exactly one active
// account: existing, restored or newly created.
type Reconciler struct {
	accounts  domain.AccountRepository
	matcher   *Matcher
	usernames *UsernameAllocator
	locker    keylock.Locker
	log       *zap.Logger

	group singleflight.Group
}

func NewReconciler(accounts domain.AccountRepository, usernames *UsernameAllocator, locker keylock.Locker, log *zap.Logger) *Reconciler {
	if locker == nil {
		locker = keylock.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		accounts:  accounts,
		matcher:   NewMatcher(accounts),
		usernames: usernames,
		locker:    locker,
		log:       log,
	}
}

// Reconcile resolves id to its account, linking, restoring or creating it.
// Concurrent calls for the same identity share one run, which keeps going
// when the caller that started it goes away.
func (r *Reconciler) Reconcile(ctx context.Context, id domain.ExternalIdentity) (*domain.Account, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	key := id.Provider + "\x00" + id.SubjectID + "\x00" + id.Email
	ch := r.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
		defer cancel()
		return r.reconcileLocked(runCtx, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Shared callers get their own copy.
		a := *res.Val.(*domain.Account)
		return &a, nil
	}
}

func (r *Reconciler) reconcileLocked(ctx context.Context, id domain.ExternalIdentity) (*domain.Account, error) {
	unlock, err := keylock.LockAll(ctx, r.locker,
		emailLockKey(id.Email), subjectLockKey(id.Provider, id.SubjectID))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Warn("identity lock unavailable; relying on database constraints",
			zap.String("provider", id.Provider), emailField(id.Email), zap.Error(err))
	} else {
		defer unlock()
	}

	for attempt := 0; ; attempt++ {
		a, outcome, err := r.reconcileOnce(ctx, id)
		if err == nil {
			metrics.ReconcileTotal.WithLabelValues(id.Provider, outcome).Inc()
			r.log.Info("login reconciled",
				zap.String("provider", id.Provider),
				zap.String("account_id", a.ID),
				zap.String("outcome", outcome))
			return a, nil
		}
		if domain.IsConflict(err) && attempt == 0 {
			metrics.ReconcileConflicts.Inc()
			r.log.Info("uniqueness conflict during reconcile; retrying",
				zap.String("provider", id.Provider), emailField(id.Email), zap.Error(err))
			continue
		}
		metrics.ReconcileTotal.WithLabelValues(id.Provider, outcomeFailed).Inc()
		r.log.Error("reconcile failed",
			zap.String("provider", id.Provider), emailField(id.Email), zap.Error(err))
		return nil, fmt.Errorf("reconcile %s login: %w", id.Provider, err)
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context, id domain.ExternalIdentity) (*domain.Account, string, error) {
	m, err := r.matcher.Resolve(ctx, id.Provider, id.SubjectID, id.Email)
	if err != nil {
		return nil, "", fmt.Errorf("match: %w", err)
	}
	switch m.Kind {
	case domain.ActiveMatch:
		return r.linkActive(ctx, m.Account, id)
	case domain.SoftDeletedMatch:
		return r.restore(ctx, m.Account, id)
	default:
		return r.provision(ctx, id)
	}
}

// linkActive backfills the provider link of an account that has none. An
// existing link is never overwritten.
func (r *Reconciler) linkActive(ctx context.Context, a *domain.Account, id domain.ExternalIdentity) (*domain.Account, string, error) {
	if a.HasProviderLink() {
		return a, outcomeActive, nil
	}
	linked, err := r.accounts.LinkProvider(ctx, a.ID, id.Provider, id.SubjectID)
	if err != nil {
		return nil, "", fmt.Errorf("link provider: %w", err)
	}
	if !linked {
		fresh, err := r.accounts.FindByID(ctx, a.ID, false)
		if err != nil {
			return nil, "", fmt.Errorf("reload account: %w", err)
		}
		return fresh, outcomeActive, nil
	}
	a.Provider = id.Provider
	a.ProviderSubjectID = id.SubjectID
	return a, outcomeLinked, nil
}

func (r *Reconciler) restore(ctx context.Context, a *domain.Account, id domain.ExternalIdentity) (*domain.Account, string, error) {
	username := a.Username
	taken, err := r.accounts.UsernameTaken(ctx, username, a.ID)
	if err != nil {
		return nil, "", fmt.Errorf("check username: %w", err)
	}
	if taken {
		if username, err = r.usernames.AllocateFor(ctx, username, a.ID); err != nil {
			return nil, "", err
		}
		r.log.Info("username reassigned on restore",
			zap.String("account_id", a.ID), zap.String("username", username))
	}

	restored, err := r.accounts.Restore(ctx, domain.RestoreInput{
		ID:        a.ID,
		Email:     id.Email,
		Provider:  id.Provider,
		SubjectID: id.SubjectID,
		Username:  username,
	})
	if err != nil {
		return nil, "", fmt.Errorf("restore account: %w", err)
	}

	// Zero rows means a concurrent login restored it first.
	fresh, err := r.accounts.FindByID(ctx, a.ID, false)
	if err != nil {
		return nil, "", fmt.Errorf("reload account: %w", err)
	}
	if !restored {
		return fresh, outcomeActive, nil
	}
	r.log.Info("soft-deleted account restored", zap.String("account_id", a.ID), emailField(id.Email))
	return fresh, outcomeRestored, nil
}

func (r *Reconciler) provision(ctx context.Context, id domain.ExternalIdentity) (*domain.Account, string, error) {
	username, err := r.usernames.Allocate(ctx, id.DisplayName)
	if err != nil {
		return nil, "", err
	}
	first, last := domain.SplitDisplayName(id.DisplayName)
	a := &domain.Account{
		Provider:          id.Provider,
		ProviderSubjectID: id.SubjectID,
		Email:             id.Email,
		Username:          username,
		FirstName:         first,
		LastName:          last,
		Role:              domain.RoleUser,
		AvatarURL:         id.AvatarURL,
		Lifecycle:         domain.Active(),
	}
	if err := r.accounts.Create(ctx, a); err != nil {
		return nil, "", fmt.Errorf("create account: %w", err)
	}
	return a, outcomeCreated, nil
}
