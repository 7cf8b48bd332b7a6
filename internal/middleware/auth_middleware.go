// Package middleware 游戏服的 HTTP 中间件。
package middleware

import (
	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/response"
	"rpgwar-self/internal/pkg/xerrors"
)

// UserIDKey 经过认证的用户 ID 在 echo.Context 中的键
const UserIDKey = "user_id"

// AuthMiddleware 认证中间件 - 从网关传递的 Header 提取用户身份
// 请求在到达这里之前已由网关完成鉴权，这里只负责提取并注入上下文。
func AuthMiddleware(respWriter response.Writer, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get("X-User-ID")
			if userID == "" {
				logger.WarnContext(c.Request().Context(), "认证失败: 缺少 X-User-ID header")
				return response.EchoError(c, respWriter,
					xerrors.New(xerrors.CodeInvalidRequest, "未授权访问: 缺少用户身份信息"))
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

// UserID 读取中间件注入的用户 ID。
func UserID(c echo.Context) string {
	if v, ok := c.Get(UserIDKey).(string); ok {
		return v
	}
	return ""
}
