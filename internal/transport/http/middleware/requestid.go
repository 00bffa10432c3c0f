package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docshare/internal/core/logger"
)

const KeyRequestID = "X-Request-ID"

// RequestID 透传上游的请求 ID；不合法时重新生成。
// 同时写进 request context，服务层日志和事件可以带上
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if !validRID(rid) {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// 只接受 [A-Za-z0-9._-]，最长 64，防止日志注入
func validRID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '.':
		default:
			return false
		}
	}
	return true
}
