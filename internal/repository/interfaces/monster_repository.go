package interfaces

import (
	"context"

	"rpgwar-self/internal/repository/entity"
)

// MonsterRepository 负责怪物模板的读取。
type MonsterRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Monster, error)

	// PickForLevel 按玩家等级挑选一个启用的怪物模板（等级最接近者优先）
	PickForLevel(ctx context.Context, level int) (*entity.Monster, error)
}
