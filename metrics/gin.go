package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinHTTPMiddleware 记录 HTTP RED 指标的 gin 中间件。
// route 标签取路由模板，未匹配的请求记为 UnknownRoute；skip 中的路由模板不记录，
// 通常是 /healthz、/readyz、/metrics 这类探针。
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics, skip ...string) gin.HandlerFunc {
	if httpMetrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok && route != "" {
			return
		}
		if route == "" {
			route = UnknownRoute
		}
		httpMetrics.Observe(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
