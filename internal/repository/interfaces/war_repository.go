package interfaces

import (
	"context"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/repository/query"
)

// WarRepository 负责王国战争的持久化。
type WarRepository interface {
	// CreateScheduled 幂等创建：同一（守方王国，时段）已存在时不重复插入。
	// 返回是否真正新建了记录。
	CreateScheduled(ctx context.Context, war *game_runtime.War) (bool, error)

	GetByID(ctx context.Context, id string) (*game_runtime.War, error)

	// ListScheduledInWindow 查询 scheduled_time ∈ [from, to) 且 status=scheduled 的战争
	ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error)

	// ListFinishedInWindow 查询 scheduled_time ∈ [from, to) 且 status=finished 的战争
	// 用于战后恢复任务定位刚结束的场次。
	ListFinishedInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error)

	// ListHistory 按条件分页查询战争记录，按开战时间倒序返回。
	ListHistory(ctx context.Context, q query.WarQuery) ([]*game_runtime.War, error)

	// FindCurrentByKingdom 查询某王国当前（未结束或当日）的战争
	FindCurrentByKingdom(ctx context.Context, kingdom string) (*game_runtime.War, error)

	// MarkRestored 给战争打上战后恢复标记。已打标时返回 false，
	// 保证恢复通知跨进程重启也只发一次。
	MarkRestored(ctx context.Context, warID string) (bool, error)

	// MarkActive 将 scheduled 的战争置为 active（封存部队）。
	// 状态不是 scheduled 时返回 false，不报错——幂等判断交由调用方。
	MarkActive(ctx context.Context, warID string, at time.Time) (bool, error)

	// FinishWar 在单个事务内落地结算结果：
	// 战争状态置 finished 并写入比分/奖励账目，逐条补写参战记录的奖励，
	// 并按奖励给参战用户的钱包和经验入账。任何一步失败则整体回滚。
	FinishWar(ctx context.Context, war *game_runtime.War, participations []*game_runtime.WarParticipation) error
}
