package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/response"
	"rpgwar-self/internal/pkg/xerrors"
)

// warBlockChecker 行为封锁检查能力（在消费端定义）
type warBlockChecker interface {
	CheckBlocked(ctx context.Context, userID, actionKind string) (*service.BlockDecision, error)
}

// WarBlockMiddleware 参战行为封锁中间件
// 按路由声明动作类型，参战期间非白名单动作一律拒绝。
type WarBlockMiddleware struct {
	checker    warBlockChecker
	respWriter response.Writer
	logger     log.Logger
}

// NewWarBlockMiddleware 创建行为封锁中间件。
func NewWarBlockMiddleware(checker warBlockChecker, respWriter response.Writer, logger log.Logger) *WarBlockMiddleware {
	return &WarBlockMiddleware{checker: checker, respWriter: respWriter, logger: logger}
}

// Require 生成指定动作类型的封锁检查中间件
// 需要挂在 AuthMiddleware 之后（依赖注入的用户 ID）。
func (m *WarBlockMiddleware) Require(actionKind string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID := UserID(c)
			if userID == "" {
				return response.EchoError(c, m.respWriter,
					xerrors.New(xerrors.CodeInvalidRequest, "缺少用户身份信息"))
			}

			decision, err := m.checker.CheckBlocked(ctx, userID, actionKind)
			if err != nil {
				m.logger.ErrorContext(ctx, "行为封锁检查失败",
					"error", err, "user_id", userID, "action", actionKind)
				return response.EchoError(c, m.respWriter, err)
			}
			if decision.Blocked {
				m.logger.InfoContext(ctx, "行为被战争参与封锁",
					"user_id", userID, "action", actionKind, "war_id", decision.WarID)
				return response.EchoError(c, m.respWriter,
					xerrors.New(xerrors.CodeWarBlockedAction, decision.Reason).
						WithWar(decision.WarID).WithUser(userID))
			}
			return next(c)
		}
	}
}
