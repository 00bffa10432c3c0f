package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/service"
	"docshare/internal/transport/http/ez"
	mdw "docshare/internal/transport/http/middleware"
)

type AuthHandler struct {
	svc *service.Auth
	l   *zap.Logger
}

func NewAuthHandler(svc *service.Auth, l *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, l: l}
}

func (h *AuthHandler) Priority() int { return 10 }

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.l)
	// 登录/注册按 IP 限速
	pub := e.Group("/auth", mdw.RateLimitPerIP(5, 20))

	type registerIn struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(pub, ez.Action[registerIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Actor, in *registerIn) (*domain.User, error) {
			return h.svc.Register(c.Request.Context(), service.RegisterInput{
				Username: in.Username, Email: in.Email, Password: in.Password,
			})
		},
	})

	// login 可以是用户名或邮箱
	type loginIn struct {
		Login    string `json:"login"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(pub, ez.Action[loginIn, *service.Session]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Actor, in *loginIn) (*service.Session, error) {
			return h.svc.Login(c.Request.Context(), in.Login, in.Password)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (*domain.User, error) {
			return h.svc.Me(c.Request.Context(), actor)
		},
	})
}
