package handler

import (
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/domain"
	"docshare/internal/service"
	"docshare/internal/transport/http/ez"
)

// FileHandler 用户端文件接口：上传、浏览、下载、点赞、编辑
type FileHandler struct {
	files *service.Files
	eng   *service.Engagement
	l     *zap.Logger
}

func NewFileHandler(files *service.Files, eng *service.Engagement, l *zap.Logger) *FileHandler {
	return &FileHandler{files: files, eng: eng, l: l}
}

func (h *FileHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.l)

	ez.UPLOAD(e, http.MethodPost, "/files", "file", h.upload)
	ez.UPLOAD(e, http.MethodPost, "/files/:id/cover", "cover", h.cover)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.File]{
		Method: http.MethodGet,
		Path:   "/files/mine",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) ([]domain.File, error) {
			return h.files.Mine(c.Request.Context(), actor)
		},
	})

	// 详情计一次浏览，只对已通过的文件开放
	ez.RegisterAction(e, ez.Action[struct{}, *domain.File]{
		Method: http.MethodGet,
		Path:   "/files/:id",
		Handler: func(c *gin.Context, _ domain.Actor, _ *struct{}) (*domain.File, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.eng.View(c.Request.Context(), id)
		},
	})

	// 作者视角：未通过的文件也能看，不计浏览
	ez.RegisterAction(e, ez.Action[struct{}, *domain.File]{
		Method: http.MethodGet,
		Path:   "/files/:id/detail",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (*domain.File, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.files.Get(c.Request.Context(), actor, id)
		},
	})

	g.GET("/files/:id/download", func(c *gin.Context) { h.download(e, c) })

	ez.RegisterAction(e, ez.Action[struct{}, service.LikeResult]{
		Method: http.MethodPost,
		Path:   "/files/:id/like",
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, _ *struct{}) (service.LikeResult, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return service.LikeResult{}, err
			}
			return h.eng.ToggleLike(c.Request.Context(), actor.ID, id)
		},
	})

	type metaIn struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		CategoryID  *uint64   `json:"categoryId"`
		TagIDs      *[]uint64 `json:"tagIds"`
	}
	ez.RegisterAction(e, ez.Action[metaIn, *domain.File]{
		Method: http.MethodPut,
		Path:   "/files/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, actor domain.Actor, in *metaIn) (*domain.File, error) {
			id, err := ez.ID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.files.UpdateMeta(c.Request.Context(), actor, id, service.MetaInput{
				Title: in.Title, Description: in.Description, CategoryID: in.CategoryID, TagIDs: in.TagIDs,
			})
		},
	})
}

func (h *FileHandler) upload(c *gin.Context, actor domain.Actor, fh *multipart.FileHeader) (any, error) {
	catID, err := strconv.ParseUint(c.PostForm("categoryId"), 10, 64)
	if err != nil {
		return nil, ez.BadRequest("invalid categoryId")
	}
	tags, err := parseIDs(c.PostForm("tagIds"))
	if err != nil {
		return nil, err
	}
	body, err := fh.Open()
	if err != nil {
		return nil, ez.BadRequest("unreadable upload")
	}
	defer body.Close()

	return h.files.Upload(c.Request.Context(), actor, service.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  catID,
		TagIDs:      tags,
		FileName:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        body,
	})
}

func (h *FileHandler) cover(c *gin.Context, actor domain.Actor, fh *multipart.FileHeader) (any, error) {
	id, err := ez.ID(c, "id")
	if err != nil {
		return nil, err
	}
	body, err := fh.Open()
	if err != nil {
		return nil, ez.BadRequest("unreadable upload")
	}
	defer body.Close()
	return h.files.SetCover(c.Request.Context(), actor, id, fh.Filename, fh.Size, fh.Header.Get("Content-Type"), body)
}

func (h *FileHandler) download(e ez.EZ, c *gin.Context) {
	id, err := ez.ID(c, "id")
	if err != nil {
		e.Reply(c, nil, err)
		return
	}
	f, rc, err := h.eng.Download(c.Request.Context(), id)
	if err != nil {
		e.Reply(c, nil, err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension("." + f.FileExt)
	if ct == "" {
		ct = "application/octet-stream"
	}
	extra := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName}),
	}
	c.DataFromReader(http.StatusOK, f.FileSize, ct, rc, extra)
}
