package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	resp "docshare/internal/transport/http/response"
)

var inflight = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{Name: "http_inflight_requests", Help: "Requests currently holding a concurrency slot"},
	[]string{"api"},
)

func init() { prometheus.MustRegister(inflight) }

// ConcurrencyLimit 限制同时在处理的请求数（保护 DB 下游）。
// 拿不到名额时最多排队 wait，超时返回 429
func ConcurrencyLimit(api string, max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	g := inflight.WithLabelValues(api)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				Abort(c, resp.CodeTooManyRequests, "server busy")
				return
			}
		}
		g.Inc()
		defer func() {
			g.Dec()
			sem.Release(1)
		}()
		c.Next()
	}
}
