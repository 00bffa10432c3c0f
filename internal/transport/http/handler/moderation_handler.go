package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/service"
	"docshare/internal/transport/http/ez"
	resp "docshare/internal/transport/http/response"
)

// ModerationHandler 管理端：审核大厅、文件/用户状态转移、审计记录
type ModerationHandler struct {
	mod *service.Moderation
	eng *service.Engagement
	l   *zap.Logger
}

func NewModerationHandler(mod *service.Moderation, eng *service.Engagement, l *zap.Logger) *ModerationHandler {
	return &ModerationHandler{mod: mod, eng: eng, l: l}
}

func (h *ModerationHandler) Priority() int { return 20 }

func (h *ModerationHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.l)
	h.mountAudits(e)
	h.mountUsers(e)
	h.mountMaintenance(e)
}

func (h *ModerationHandler) mountAudits(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[pageQ, resp.Page[domain.File]]{
		Method: http.MethodGet,
		Path:   "/audits/hall",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Actor, in *pageQ) (resp.Page[domain.File], error) {
			items, total, err := h.mod.AuditHall(c.Request.Context(), in.Offset, in.Limit)
			return resp.NewPage(items, total), err
		},
	})
	ez.RegisterAction(e, ez.Action[pageQ, resp.Page[domain.AuditRecord]]{
		Method: http.MethodGet,
		Path:   "/audits/records",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Actor, in *pageQ) (resp.Page[domain.AuditRecord], error) {
			items, total, err := h.mod.Records(c.Request.Context(), in.Offset, in.Limit)
			return resp.NewPage(items, total), err
		},
	})
	for path, st := range map[string]domain.SubjectType{
		"/audits/records/file/:id": domain.SubjectFile,
		"/audits/records/user/:id": domain.SubjectUser,
	} {
		ez.RegisterAction(e, ez.Action[struct{}, []domain.AuditRecord]{
			Method: http.MethodGet,
			Path:   path,
			Auth:   true,
			Handler: func(c *gin.Context, _ domain.Actor, _ *struct{}) ([]domain.AuditRecord, error) {
				id, err := ez.ID(c, "id")
				if err != nil {
					return nil, err
				}
				return h.mod.History(c.Request.Context(), st, id)
			},
		})
	}

	// /audits/approve/:id 等；动作名不认识时由服务层返回校验错误
	ez.RegisterAction(e, ez.Action[remarkIn, *domain.File]{
		Method: http.MethodPut,
		Path:   "/audits/:action/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *remarkIn) (*domain.File, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			action := domain.FileAction(c.Param("action"))
			if action == domain.FileDelete {
				return nil, ez.BadRequest("use DELETE /files/:id")
			}
			return h.mod.TransitionFile(c.Request.Context(), actor, id, action, in.Remark)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.AuditRecord]{
		Method: http.MethodDelete,
		Path:   "/files/:id",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (*domain.AuditRecord, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.mod.DeleteFile(c.Request.Context(), actor, id, c.Query("remark"))
		},
	})
}

func (h *ModerationHandler) mountUsers(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[pageQ, resp.Page[domain.User]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Actor, in *pageQ) (resp.Page[domain.User], error) {
			items, total, err := h.mod.Users(c.Request.Context(), in.Offset, in.Limit)
			return resp.NewPage(items, total), err
		},
	})

	upload := map[string]func(*gin.Context, domain.Actor, uint64, string) (*domain.User, error){
		"/users/:id/ban-upload": func(c *gin.Context, a domain.Actor, id uint64, remark string) (*domain.User, error) {
			return h.mod.BanUpload(c.Request.Context(), a, id, remark)
		},
		"/users/:id/unban-upload": func(c *gin.Context, a domain.Actor, id uint64, remark string) (*domain.User, error) {
			return h.mod.UnbanUpload(c.Request.Context(), a, id, remark)
		},
	}
	for path, fn := range upload {
		ez.RegisterAction(e, ez.Action[remarkIn, *domain.User]{
			Method: http.MethodPut,
			Path:   path,
			Binder: ez.BindJSON,
			Auth:   true,
			Handler: func(c *gin.Context, actor domain.Actor, in *remarkIn) (*domain.User, error) {
				id, err := ez.ID(c, "id")
				if err != nil {
					return nil, err
				}
				return fn(c, actor, id, in.Remark)
			},
		})
	}

	// role 接受 "VOLUNTEER" 或 "2"
	type roleIn struct {
		Role   domain.Role `json:"role" binding:"required"`
		Remark string      `json:"remark"`
	}
	ez.RegisterAction(e, ez.Action[roleIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/role",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *roleIn) (*domain.User, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.mod.ChangeRole(c.Request.Context(), actor, id, in.Role, in.Remark)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.AuditRecord]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) ([]domain.AuditRecord, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.mod.DeleteUser(c.Request.Context(), actor, id, c.Query("remark"))
		},
	})
}

// 计数修复：路由按令牌粗筛，服务层按库内角色复核
func (h *ModerationHandler) mountMaintenance(e ez.EZ) {
	type recountOut struct {
		Before int64 `json:"before"`
		After  int64 `json:"after"`
	}
	ez.RegisterAction(e, ez.Action[struct{}, recountOut]{
		Method:  http.MethodPost,
		Path:    "/files/:id/recount-likes",
		MinRole: domain.RoleAdmin,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (recountOut, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return recountOut{}, err
			}
			b, a, err := h.eng.RecountLikes(c.Request.Context(), actor, id)
			return recountOut{Before: b, After: a}, err
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, recountOut]{
		Method:  http.MethodPost,
		Path:    "/users/:id/recount-banned",
		MinRole: domain.RoleAdmin,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (recountOut, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return recountOut{}, err
			}
			b, a, err := h.eng.RecountBannedFiles(c.Request.Context(), actor, id)
			return recountOut{Before: b, After: a}, err
		},
	})
}
