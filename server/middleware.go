package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/scoregate/clog"
)

// HeaderRequestID 请求 id 头
const HeaderRequestID = "X-Request-ID"

// requestID 透传或生成请求 id，写入响应头与 ctx
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(clog.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []clog.Field{
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path),
			clog.String("query", c.Request.URL.RawQuery),
			clog.Int("status", status),
			clog.Duration("latency", time.Since(start)),
			clog.String("request_id", clog.RequestIDFrom(c.Request.Context())),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, clog.Error(last.Err))
		}
		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			logger.WarnContext(ctx, "http request", fields...)
		default:
			logger.InfoContext(ctx, "http request", fields...)
		}
	}
}
