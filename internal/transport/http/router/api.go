package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portfolio-accounts/internal/core/auth"
	"portfolio-accounts/internal/core/server"
	mdw "portfolio-accounts/internal/transport/http/middleware"
)

type EngineOptions struct {
	CORSOrigins []string
	// Timeout bounds each request; keep it above the provider timeout.
	Timeout time.Duration
}

func (o EngineOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 15 * time.Second
	}
	return o.Timeout
}

func baseEngine(l *zap.Logger, o EngineOptions) *gin.Engine {
	r := server.NewRouter(l, server.Options{CORSOrigins: o.CORSOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300, 2*time.Second),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(o.timeout()),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// NewAPIEngine serves the OAuth login routes under /auth and the signed-in
// user's routes under /api/v1.
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, mods *Registry, o EngineOptions) *gin.Engine {
	r := baseEngine(l, o)

	login := r.Group("", mdw.RateLimitPerIP(5, 20))
	mods.MountPublic(login)

	api := r.Group("/api/v1")
	api.Use(mdw.AuthJWT(jwter, ""))
	mods.MountAPI(api)
	return r
}
