package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "docshare/internal/transport/http/response"
)

// KeyRespCode 本次响应的业务码。HTTP 状态固定 200，访问日志和指标按它区分成败
const KeyRespCode = "respCode"

// JSON 写统一响应并记下业务码
func JSON(c *gin.Context, r resp.Resp) {
	c.Set(KeyRespCode, r.Code)
	c.JSON(http.StatusOK, r)
}

// Abort 写错误响应并终止后续 handler
func Abort(c *gin.Context, code int, msg string) {
	c.Set(KeyRespCode, code)
	c.AbortWithStatusJSON(http.StatusOK, resp.Error(code, msg))
}

// RespCode 未经 JSON/Abort 写出的响应（文件流等）视为成功
func RespCode(c *gin.Context) int {
	if v, ok := c.Get(KeyRespCode); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return resp.CodeOK
}
