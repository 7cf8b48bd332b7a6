package interfaces

import (
	"context"

	"rpgwar-self/internal/entity/game_runtime"
)

// BattleSessionRepository 负责战斗会话的持久化。
// 会话状态整体读写：引擎按"加载-变更-提交"边界操作，不做字段级更新。
type BattleSessionRepository interface {
	Create(ctx context.Context, session *game_runtime.BattleSession) error
	GetByID(ctx context.Context, id string) (*game_runtime.BattleSession, error)
	// Update 全量保存会话状态；expectedRound 不匹配时返回冲突错误，
	// 防止并发结算对同一回合重复落地。
	Update(ctx context.Context, session *game_runtime.BattleSession, expectedRound int) error
	// FindActiveByPair 查找同一有序参与者对的进行中会话
	FindActiveByPair(ctx context.Context, pairKey string) (*game_runtime.BattleSession, error)
}
