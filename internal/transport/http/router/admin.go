package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-accounts/internal/core/auth"
	"portfolio-accounts/internal/domain"
	mdw "portfolio-accounts/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1; every route requires the admin role.
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, mods *Registry, o EngineOptions) *gin.Engine {
	r := baseEngine(l, o)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleAdmin))
	mods.MountAdmin(admin)
	return r
}
