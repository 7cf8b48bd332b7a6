package interfaces

import (
	"context"

	"rpgwar-self/internal/repository/entity"
)

// UserRepository 负责游戏用户档案的持久化。
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// ApplyRewards 给用户累加经验与金币（单条 UPDATE，自带原子性）
	ApplyRewards(ctx context.Context, userID string, exp, money int64) error

	// RestoreVitals 将一批用户的 HP/MP 恢复到上限（战后恢复任务使用）
	RestoreVitals(ctx context.Context, userIDs []string) (int64, error)
}
