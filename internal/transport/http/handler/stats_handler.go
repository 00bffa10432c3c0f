package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docshare/internal/service"
	"docshare/internal/transport/http/ez"
)

type StatsHandler struct {
	stats *service.Stats
	l     *zap.Logger
}

func NewStatsHandler(stats *service.Stats, l *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, l: l}
}

func (h *StatsHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.l).Group("/stats")
	e.GET("/overview", func(c *gin.Context) (any, error) { return h.stats.Overview(c.Request.Context()) })
	e.GET("/auditors", func(c *gin.Context) (any, error) { return h.stats.Auditors(c.Request.Context()) })
	e.GET("/hot-files", func(c *gin.Context) (any, error) {
		n, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		return h.stats.HotFiles(c.Request.Context(), n)
	})
}
