package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	resp "docshare/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小。声明了 Content-Length 的超限请求直接拒绝，
// 分块上传在读取时由 MaxBytesReader 截断，上传接口据此返回 400
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			Abort(c, resp.CodeBadRequest, "request body too large (limit "+strconv.FormatInt(n, 10)+" bytes)")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
