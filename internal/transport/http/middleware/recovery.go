package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "docshare/internal/transport/http/response"
)

// Recovery panic 转成统一 500 响应并记录堆栈
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("rid", c.GetString(KeyRequestID)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				Abort(c, resp.CodeServerError, "internal error")
			}
		}()
		c.Next()
	}
}
