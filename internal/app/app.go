// Package app assembles the services shared by the user API and the admin
// API from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"portfolio-accounts/internal/core/auth"
	"portfolio-accounts/internal/core/config"
	"portfolio-accounts/internal/core/database"
	"portfolio-accounts/internal/core/keylock"
	"portfolio-accounts/internal/core/logger"
	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/identity"
	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/repo"
	"portfolio-accounts/internal/service"
	"portfolio-accounts/internal/transport/http/handler"
	mdw "portfolio-accounts/internal/transport/http/middleware"
	"portfolio-accounts/internal/transport/http/router"
)

var ErrUnknownLockBackend = errors.New("unknown lock backend")

type App struct {
	Cfg *config.Config
	Log *zap.Logger
	DB  *gorm.DB
	JWT *auth.JWTer

	Media      media.Store
	Locker     keylock.Locker
	Directory  *service.Directory
	Lifecycle  *service.Lifecycle
	Avatars    *service.AvatarService
	Reconciler *service.Reconciler

	closers []func() error
}

// New opens the database (migrating it when configured), the identity lock
// backend and the media store, then builds the account services.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Locker = locker

	mode, err := service.ParseDestroyMode(cfg.Lifecycle.DestroyMode)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := RegisterMetrics(nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a.JWT = auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)
	a.Media = media.NewDiskStore(cfg.Media.Root, cfg.Media.PublicPrefix)

	accounts := repo.NewAccountRepo(db)
	deps := repo.NewDependentRepo(db)
	u := cfg.Identity.Username
	usernames := service.NewUsernameAllocator(accounts, service.UsernamePolicy{
		MaxLen:          u.MaxLen,
		NumericAttempts: u.NumericAttempts,
		NumericMax:      u.NumericMax,
		RandomAttempts:  u.RandomAttempts,
		RandomLen:       u.RandomLen,
	})

	a.Directory = service.NewDirectory(accounts)
	a.Lifecycle = service.NewLifecycle(accounts, deps, a.Media, locker, mode, log)
	a.Avatars = service.NewAvatarService(accounts, a.Media, log)
	a.Reconciler = service.NewReconciler(accounts, usernames, locker, log)
	return a, nil
}

func (a *App) newLocker(ctx context.Context) (keylock.Locker, error) {
	lc := a.Cfg.Identity.Lock
	switch lc.Backend {
	case "", "local":
		return keylock.NewLocal(), nil
	case "redis":
		r := keylock.NewRedis(a.Cfg.Redis.Addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB,
			time.Duration(lc.TTLMs)*time.Millisecond, time.Duration(lc.WaitMs)*time.Millisecond)
		a.closers = append(a.closers, r.Close)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		// Not fatal: a failed Lock falls back to database constraints.
		if err := r.RDB.Ping(pctx).Err(); err != nil {
			a.Log.Warn("redis lock backend unreachable", zap.String("addr", a.Cfg.Redis.Addr), zap.Error(err))
		} else {
			a.Log.Info("redis lock backend connected", zap.String("addr", a.Cfg.Redis.Addr))
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLockBackend, lc.Backend)
	}
}

// Providers builds the identity providers that have a client id configured.
// Google runs OIDC discovery here, so ctx bounds startup.
func (a *App) Providers(ctx context.Context) (*identity.Registry, error) {
	o := a.Cfg.OAuth
	var list []identity.Provider
	if o.Google.ClientID != "" {
		g, err := identity.NewGoogle(ctx, identity.GoogleConfig{
			ClientID:     o.Google.ClientID,
			ClientSecret: o.Google.ClientSecret,
			RedirectURL:  o.Google.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	if o.GitHub.ClientID != "" {
		g, err := identity.NewGitHub(identity.GitHubConfig{
			ClientID:     o.GitHub.ClientID,
			ClientSecret: o.GitHub.ClientSecret,
			RedirectURL:  o.GitHub.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	reg := identity.NewRegistry(o.Timeout(), a.Log, list...)
	if len(list) == 0 {
		a.Log.Warn("no identity providers configured; login is disabled")
	} else {
		a.Log.Info("identity providers ready", zap.Strings("providers", reg.Names()))
	}
	return reg, nil
}

// APIModules mounts the OAuth login flow and the signed-in user's routes.
func (a *App) APIModules(providers *identity.Registry) *router.Registry {
	authH := handler.NewAuthHandler(providers, a.Reconciler, a.JWT, handler.AuthOptions{
		SuccessRedirect: a.Cfg.OAuth.SuccessRedirect,
		FailureRedirect: a.Cfg.OAuth.FailureRedirect,
		CookieSecure:    a.Cfg.OAuth.CookieSecure,
	}, a.Log)
	accountH := handler.NewAccountHandler(a.Directory, a.Lifecycle, a.Avatars, a.Media)
	if a.Cfg.App.HomePath != "" {
		accountH.HomePath = a.Cfg.App.HomePath
	}
	return router.NewRegistry(authH, accountH)
}

func (a *App) AdminModules() *router.Registry {
	return router.NewRegistry(handler.NewAdminHandler(a.Directory, a.Lifecycle, a.Media))
}

// EngineOptions keeps the request timeout above the provider exchange
// timeout so a slow provider surfaces as a failed login, not a 504.
func (a *App) EngineOptions() router.EngineOptions {
	return router.EngineOptions{
		CORSOrigins: a.Cfg.App.CORSOrigins,
		Timeout:     a.Cfg.OAuth.Timeout() + 5*time.Second,
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

// RegisterMetrics registers the account and HTTP collectors on reg (default
// registry when nil). Repeated registration is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := metrics.Register(reg); err != nil {
		return err
	}
	for _, c := range mdw.HTTPCollectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// NewLogger builds the process logger, writing to a rotated file when
// log.rotate.enable is set.
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	rt := cfg.Log.Rotate
	if !rt.Enable {
		return logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Enable:     true,
		Filename:   rt.Filename,
		MaxSizeMB:  rt.MaxSizeMB,
		MaxBackups: rt.MaxBackups,
		MaxAgeDays: rt.MaxAgeDays,
		Compress:   rt.Compress,
	})
}
