package interfaces

import (
	"context"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
)

// ParticipationWithWar 参战记录连同所属战争的关键字段。
// 行为封锁检查只需要这几列，避免整场战争的反序列化开销。
type ParticipationWithWar struct {
	Participation    *game_runtime.WarParticipation
	WarStatus        game_runtime.WarStatus
	ScheduledTime    time.Time
	DefendingKingdom string
}

// WarParticipationRepository 负责参战记录的持久化。
type WarParticipationRepository interface {
	// Create 创建参战记录；同一（war_id, user_id）已存在时返回重复错误。
	Create(ctx context.Context, p *game_runtime.WarParticipation) error

	ListByWar(ctx context.Context, warID string) ([]*game_runtime.WarParticipation, error)

	// ListByUserUnfinished 查询用户在未结束战争中的参战记录
	ListByUserUnfinished(ctx context.Context, userID string) ([]*ParticipationWithWar, error)
}
