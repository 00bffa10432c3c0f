package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"docshare/internal/core/auth"
	"docshare/internal/domain"
	resp "docshare/internal/transport/http/response"
)

// 上下文键：userId(uint64) / role(domain.Role)
const (
	KeyUserID = "userId"
	KeyRole   = "role"
)

// AuthJWT 强制登录，且令牌角色不低于 min。
// 令牌角色只做粗筛，服务层会按库里的角色重新判定
func AuthJWT(j *auth.JWTer, min domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		if !claims.Role.AtLeast(min) {
			Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// ParseJWT 可选登录：带了合法令牌就写入上下文，否则匿名放行
func ParseJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if strings.HasPrefix(ah, "Bearer ") {
			if claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer ")); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set("claims", claims)
	c.Set(KeyUserID, claims.UID)
	c.Set(KeyRole, claims.Role)
}

// ActorOf 取当前调用方；未登录返回 false
func ActorOf(c *gin.Context) (domain.Actor, bool) {
	uid := c.GetUint64(KeyUserID)
	if uid == 0 {
		return domain.Actor{}, false
	}
	role, _ := c.Get(KeyRole)
	r, _ := role.(domain.Role)
	return domain.Actor{ID: uid, Role: r}, true
}
