package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// code 是响应体里的业务码，HTTP 状态几乎总是 200
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests by route and response code"},
		[]string{"api", "path", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"api", "path", "method"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency) }

// Metrics api 区分用户端与管理端（两个进程共用一套指标名）
func Metrics(api string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// 未匹配路由统一归一，避免扫描请求撑爆 label
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(api, path, c.Request.Method, strconv.Itoa(RespCode(c))).Inc()
		httpLatency.WithLabelValues(api, path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
