package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/pkg/log"
)

// LoggingMiddleware 请求日志中间件
func LoggingMiddleware(logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			logger.InfoContext(req.Context(), "请求完成",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_id", UserID(c),
			)
			return err
		}
	}
}
