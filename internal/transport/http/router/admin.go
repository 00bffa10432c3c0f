package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docshare/internal/core/auth"
	"docshare/internal/domain"
	mdw "docshare/internal/transport/http/middleware"
)

// NewAdminEngine 管理端：/admin/v1 统一要求志愿者及以上令牌，
// 具体动作的权限由服务层按库内角色判定
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, reg *Registry, o Limits) *gin.Engine {
	r := baseEngine(l, "admin", o)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleVolunteer))
	reg.MountAdmin(admin)

	return r
}

func rateOf(rps float64) rate.Limit { return rate.Limit(rps) }
