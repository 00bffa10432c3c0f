package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/core/auth"
	"docshare/internal/core/server"
	mdw "docshare/internal/transport/http/middleware"
)

// Limits 引擎级限流/超时参数；零值用默认
type Limits struct {
	RPS          float64
	Burst        int
	Concurrency  int64
	MaxBodyBytes int64
	Timeout      time.Duration
}

func (o Limits) withDefaults() Limits {
	if o.RPS <= 0 {
		o.RPS = 200
	}
	if o.Burst <= 0 {
		o.Burst = 400
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 16 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// baseEngine api 用作指标标签：user / admin
func baseEngine(l *zap.Logger, api string, o Limits) *gin.Engine {
	o = o.withDefaults()
	r := server.NewRouter(l)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rateOf(o.RPS), o.Burst),
		mdw.ConcurrencyLimit(api, o.Concurrency, time.Second),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout, "/download"),
		mdw.Recovery(l),
		mdw.Metrics(api),
		mdw.AccessLog(l),
	)
	return r
}

// NewAPIEngine 用户端：/api/v1，令牌可选，需要登录的接口在 Action 上声明
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, reg *Registry, o Limits) *gin.Engine {
	r := baseEngine(l, "user", o)

	api := r.Group("/api/v1")
	api.Use(mdw.ParseJWT(jwter))
	reg.MountAPI(api)

	return r
}
