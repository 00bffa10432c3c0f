package ez

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/domain"
	mdw "docshare/internal/transport/http/middleware"
	resp "docshare/internal/transport/http/response"
)

type EZ struct {
	g *gin.RouterGroup
	l *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, l: l}
}

// Group 同一 logger 下的子分组
func (e EZ) Group(path string, h ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, h...), l: e.l}
}

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		e.Reply(c, data, err)
	})
}

// UPLOAD multipart 单文件上传，要求登录
func UPLOAD(e EZ, method, path, field string, h func(c *gin.Context, actor domain.Actor, fh *multipart.FileHeader) (any, error)) {
	e.g.Handle(strings.ToUpper(method), path, func(c *gin.Context) {
		actor, ok := mdw.ActorOf(c)
		if !ok {
			mdw.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		fh, err := c.FormFile(field)
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				mdw.JSON(c, resp.Error(resp.CodeBadRequest, "upload exceeds "+strconv.FormatInt(tooBig.Limit, 10)+" bytes"))
				return
			}
			mdw.JSON(c, resp.Error(resp.CodeBadRequest, "missing file field "+field))
			return
		}
		data, err := h(c, actor, fh)
		e.Reply(c, data, err)
	})
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// CodeOf 业务错误映射成响应码；存储类错误不向外暴露细节
func CodeOf(err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code == resp.CodeServerError {
			return ae.Code, CodeMsg(ae.Code, ae.Msg)
		}
		return ae.Code, ae.Error()
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return resp.CodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return resp.CodeUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return resp.CodeForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return resp.CodeConflict, err.Error()
	}
	return resp.CodeServerError, resp.CodeMsgMap[resp.CodeServerError]
}

func CodeMsg(code int, msg string) string {
	if msg != "" {
		return msg
	}
	return resp.CodeMsgMap[code]
}

// Reply 写统一响应；5xx 记 error 日志
func (e EZ) Reply(c *gin.Context, data any, err error) {
	if err == nil {
		mdw.JSON(c, resp.OK(data))
		return
	}
	code, msg := CodeOf(err)
	if code >= resp.CodeServerError {
		e.l.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	mdw.JSON(c, resp.Error(code, msg))
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string      // "GET" | "POST" | "PUT" | "DELETE"
	Path    string      // 例："/auth/login"、"/audits/approve/:id"
	Binder  Binder      // 绑定方式
	Auth    bool        // 是否要求登录（检查 userId）
	MinRole domain.Role // 令牌角色下限（可选），为 0 不限
	Handler func(c *gin.Context, actor domain.Actor, in *I) (O, error)
}

// 在当前 EZ 下注册动作接口；事务由服务层的 UnitOfWork 负责
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		actor, logged := mdw.ActorOf(c)
		if (a.Auth || a.MinRole != 0) && !logged {
			mdw.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		if a.MinRole != 0 && !actor.Role.AtLeast(a.MinRole) {
			mdw.JSON(c, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			mdw.JSON(c, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, actor, &in)
		e.Reply(c, out, err)
	}

	e.g.Handle(strings.ToUpper(a.Method), a.Path, h)
}

// ID 取路径上的数字 ID
func ID(c *gin.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, BadRequest("invalid " + name)
	}
	return v, nil
}
