package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	resp "docshare/internal/transport/http/response"
)

// Timeout 给下游 context 设截止时间。路由模板以 streamSuffix 结尾的（文件下载）不设，
// 大文件传输时间取决于客户端带宽
func Timeout(d time.Duration, streamSuffix ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		for _, s := range streamSuffix {
			if strings.HasSuffix(path, s) {
				c.Next()
				return
			}
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			Abort(c, resp.CodeTimeout, "timeout")
		}
	}
}
