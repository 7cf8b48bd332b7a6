package service

import (
	"context"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/repository/interfaces"
)

// 战争期间放行的动作白名单（战争相关入口与主菜单不受封锁）。
var warAllowedActions = map[string]bool{
	"kingdom_wars": true,
	"war_results":  true,
	"battle_menu":  true,
	"main_menu":    true,
}

// BlockDecision 行为封锁检查的结果
// Blocked=false 时其余字段为零值。
type BlockDecision struct {
	Blocked          bool      `json:"blocked"`
	WarID            string    `json:"war_id,omitempty"`
	DefendingKingdom string    `json:"defending_kingdom,omitempty"`
	ScheduledTime    time.Time `json:"scheduled_time,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

// WarBlockService 参战期间的行为封锁
// 判定是纯读操作：玩家在进行中的战争里，或在临近开战窗口内
// 已报名的战争里，除白名单外的动作一律封锁。
type WarBlockService struct {
	partRepo interfaces.WarParticipationRepository
	cfg      *config.GameConfig
	nowFn    func() time.Time
}

// NewWarBlockService 构造函数。
func NewWarBlockService(partRepo interfaces.WarParticipationRepository, cfg *config.GameConfig) *WarBlockService {
	return &WarBlockService{
		partRepo: partRepo,
		cfg:      cfg,
		nowFn:    time.Now,
	}
}

// CheckBlocked 检查用户执行某动作是否被战争参与封锁。
func (s *WarBlockService) CheckBlocked(ctx context.Context, userID, actionKind string) (*BlockDecision, error) {
	if warAllowedActions[actionKind] {
		return &BlockDecision{}, nil
	}

	records, err := s.partRepo.ListByUserUnfinished(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.nowFn()
	for _, rec := range records {
		if blocking, reason := s.blocks(rec, now); blocking {
			return &BlockDecision{
				Blocked:          true,
				WarID:            rec.Participation.WarID,
				DefendingKingdom: rec.DefendingKingdom,
				ScheduledTime:    rec.ScheduledTime,
				Reason:           reason,
			}, nil
		}
	}
	return &BlockDecision{}, nil
}

// blocks 单条参战记录是否构成封锁。
// active 战争无条件封锁；scheduled 战争在开战临近窗口内封锁
// （含已过开战时刻但还没结算的场次）。
func (s *WarBlockService) blocks(rec *interfaces.ParticipationWithWar, now time.Time) (bool, string) {
	switch rec.WarStatus {
	case game_runtime.WarActive:
		return true, "战争进行中，暂时无法执行该操作"
	case game_runtime.WarScheduled:
		if rec.ScheduledTime.Sub(now) <= s.cfg.ImminentWindow {
			return true, "战争即将开始，暂时无法执行该操作"
		}
	}
	return false, ""
}
