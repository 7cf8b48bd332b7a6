package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/response"
	"rpgwar-self/internal/pkg/xerrors"
)

// RecoveryMiddleware panic 恢复中间件
// handler panic 时记录堆栈并返回统一的内部错误响应。
func RecoveryMiddleware(respWriter response.Writer, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(c.Request().Context(), "handler panic",
						"panic", fmt.Sprintf("%v", r),
						"path", c.Request().URL.Path,
						"stack", string(debug.Stack()),
					)
					err = response.EchoError(c, respWriter,
						xerrors.New(xerrors.CodeInternalError, "服务内部错误"))
				}
			}()
			return next(c)
		}
	}
}
