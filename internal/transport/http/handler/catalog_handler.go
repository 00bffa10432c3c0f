package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/service"
	"docshare/internal/transport/http/ez"
)

type CatalogHandler struct {
	cat   *service.Catalog
	stats *service.Stats
	l     *zap.Logger
}

func NewCatalogHandler(cat *service.Catalog, stats *service.Stats, l *zap.Logger) *CatalogHandler {
	return &CatalogHandler{cat: cat, stats: stats, l: l}
}

func (h *CatalogHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.l)
	e.GET("/categories", func(c *gin.Context) (any, error) { return h.cat.Categories(c.Request.Context()) })
	e.GET("/tags", func(c *gin.Context) (any, error) { return h.cat.Tags(c.Request.Context()) })
	e.GET("/tags/hot", func(c *gin.Context) (any, error) {
		n, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		return h.stats.HotTags(c.Request.Context(), n)
	})
}

type categoryIn struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *uint64 `json:"parentId"`
	SortOrder   int     `json:"sortOrder"`
	Enabled     *bool   `json:"enabled"`
}

func (in *categoryIn) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
		Enabled:     in.Enabled == nil || *in.Enabled,
	}
}

type tagIn struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

func (in *tagIn) input() service.TagInput {
	return service.TagInput{Name: in.Name, Description: in.Description, Enabled: in.Enabled == nil || *in.Enabled}
}

func (h *CatalogHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.l)
	e.GET("/categories", func(c *gin.Context) (any, error) { return h.cat.Categories(c.Request.Context()) })
	e.GET("/tags", func(c *gin.Context) (any, error) { return h.cat.Tags(c.Request.Context()) })

	ez.RegisterAction(e, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPost,
		Path:   "/categories",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *categoryIn) (*domain.Category, error) {
			return h.cat.CreateCategory(c.Request.Context(), actor, in.input())
		},
	})
	ez.RegisterAction(e, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPut,
		Path:   "/categories/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *categoryIn) (*domain.Category, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.cat.UpdateCategory(c.Request.Context(), actor, id, in.input())
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/categories/:id",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (gin.H, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := h.cat.DeleteCategory(c.Request.Context(), actor, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[tagIn, *domain.Tag]{
		Method: http.MethodPost,
		Path:   "/tags",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *tagIn) (*domain.Tag, error) {
			return h.cat.CreateTag(c.Request.Context(), actor, in.input())
		},
	})
	ez.RegisterAction(e, ez.Action[tagIn, *domain.Tag]{
		Method: http.MethodPut,
		Path:   "/tags/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *tagIn) (*domain.Tag, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.cat.UpdateTag(c.Request.Context(), actor, id, in.input())
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/tags/:id",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (gin.H, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := h.cat.DeleteTag(c.Request.Context(), actor, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
