package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/media"
)

const (
	avatarDir          = "avatars"
	MaxAvatarBytes     = 2 << 20
	avatarMetricsLabel = "avatar"
)

var avatarExts = map[string]bool{"jpg": true, "jpeg": true, "png": true}

type AvatarService struct {
	accounts domain.AccountRepository
	media    media.Store
	log      *zap.Logger
}

func NewAvatarService(accounts domain.AccountRepository, store media.Store, log *zap.Logger) *AvatarService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AvatarService{accounts: accounts, media: store, log: log}
}

// Replace swaps the stored avatar of an active account. The previous blob is
// removed first; if that fails nothing changes and ErrStorageDelete is
// returned.
func (s *AvatarService) Replace(ctx context.Context, accountID, filename string, size int64, r io.Reader) (*domain.Account, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !avatarExts[ext] {
		return nil, fmt.Errorf("%w: avatar must be jpeg or png", domain.ErrInvalidMedia)
	}
	if size <= 0 || size > MaxAvatarBytes {
		return nil, fmt.Errorf("%w: avatar must be at most %d bytes", domain.ErrInvalidMedia, MaxAvatarBytes)
	}

	a, err := s.accounts.FindByID(ctx, accountID, false)
	if err != nil {
		return nil, err
	}

	if a.AvatarPath != "" {
		if err := s.media.Delete(ctx, a.AvatarPath); err != nil {
			metrics.MediaDeleteFailures.WithLabelValues(avatarMetricsLabel).Inc()
			s.log.Error("previous avatar delete failed",
				zap.String("account_id", a.ID), zap.String("path", a.AvatarPath), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageDelete, err)
		}
	}

	p, err := s.media.Put(ctx, avatarDir, ext, io.LimitReader(r, MaxAvatarBytes))
	if err != nil {
		if a.AvatarPath != "" {
			s.clearPath(ctx, a.ID)
		}
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.accounts.UpdateAvatarPath(ctx, a.ID, p); err != nil {
		if derr := s.media.Delete(ctx, p); derr != nil {
			s.log.Error("orphaned avatar after failed update",
				zap.String("account_id", a.ID), zap.String("path", p), zap.Error(derr))
		}
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	a.AvatarPath = p
	s.log.Info("avatar replaced", zap.String("account_id", a.ID), zap.String("path", p))
	return a, nil
}

// clearPath drops a reference to a blob that no longer exists.
func (s *AvatarService) clearPath(ctx context.Context, accountID string) {
	if err := s.accounts.UpdateAvatarPath(ctx, accountID, ""); err != nil {
		s.log.Warn("clear avatar path failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

// AvatarURL is the public picture of an account: the stored avatar when there
// is one, else the provider picture.
func AvatarURL(store media.Store, a *domain.Account) string {
	if a.AvatarPath != "" {
		return store.URL(a.AvatarPath)
	}
	return a.AvatarURL
}
