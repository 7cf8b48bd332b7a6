package game_runtime

import "time"

// WarType 战争类型
type WarType string

const (
	WarKingdomAttack WarType = "kingdom_attack"
	WarSiege         WarType = "siege"
)

// WarStatus 战争状态，单向推进，不允许回退
type WarStatus string

const (
	WarScheduled WarStatus = "scheduled"
	WarActive    WarStatus = "active"
	WarFinished  WarStatus = "finished"
)

// CanTransitionTo 校验状态迁移方向
// scheduled → active → finished；结算在单个事务内完成时允许 scheduled → finished。
func (s WarStatus) CanTransitionTo(next WarStatus) bool {
	switch s {
	case WarScheduled:
		return next == WarActive || next == WarFinished
	case WarActive:
		return next == WarFinished
	default:
		return false
	}
}

// WarRole 参战角色
type WarRole string

const (
	RoleAttacker WarRole = "attacker"
	RoleDefender WarRole = "defender"
)

// War 王国战争
// 每个（守方王国，时段）至多一场；status=active 之后部队不可变更。
type War struct {
	ID                string    `json:"id"`
	Type              WarType   `json:"type"`
	Status            WarStatus `json:"status"`
	ScheduledTime     time.Time `json:"scheduled_time"`
	DefendingKingdom  string    `json:"defending_kingdom"`
	AttackingKingdoms []string  `json:"attacking_kingdoms"`
	DefenseBuff       float64   `json:"defense_buff"`

	// 结算结果，status=finished 后填充且不再变更
	AttackScore      float64 `json:"attack_score"`
	DefenseScore     float64 `json:"defense_score"`
	WinnerRole       WarRole `json:"winner_role,omitempty"`
	WinningKingdom   string  `json:"winning_kingdom,omitempty"`
	Margin           float64 `json:"margin"`
	MoneyTransferred int64   `json:"money_transferred"`
	ExpDistributed   int64   `json:"exp_distributed"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	RestoredAt *time.Time `json:"restored_at,omitempty"` // 战后恢复任务处理过的标记
}

// WarParticipation 用户在某场战争中的参战记录
// 战争结束后只允许补写奖励字段。
type WarParticipation struct {
	ID       string    `json:"id"`
	WarID    string    `json:"war_id"`
	UserID   string    `json:"user_id"`
	Kingdom  string    `json:"kingdom"`
	Role     WarRole   `json:"role"`
	Snapshot Combatant `json:"snapshot"`

	RewardMoney int64 `json:"reward_money"`
	RewardExp   int64 `json:"reward_exp"`

	JoinedAt time.Time `json:"joined_at"`
}

// WarResult 单场战争的结算摘要，用于幂等返回与频道通知
type WarResult struct {
	WarID            string  `json:"war_id"`
	DefendingKingdom string  `json:"defending_kingdom"`
	WinnerRole       WarRole `json:"winner_role"`
	WinningKingdom   string  `json:"winning_kingdom"`
	AttackScore      float64 `json:"attack_score"`
	DefenseScore     float64 `json:"defense_score"`
	Margin           float64 `json:"margin"`
	MoneyTransferred int64   `json:"money_transferred"`
	ExpDistributed   int64   `json:"exp_distributed"`
	Participants     int     `json:"participants"`
}
