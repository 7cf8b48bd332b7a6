package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/repository/interfaces"
)

func participationRecord(warID string, status game_runtime.WarStatus, at time.Time) *interfaces.ParticipationWithWar {
	return &interfaces.ParticipationWithWar{
		Participation: &game_runtime.WarParticipation{
			ID: "p-" + warID, WarID: warID, UserID: "u1",
			Kingdom: "north", Role: game_runtime.RoleDefender,
		},
		WarStatus:        status,
		ScheduledTime:    at,
		DefendingKingdom: "north",
	}
}

// TestWarBlockService_CheckBlocked 测试参战期间的行为封锁矩阵
func TestWarBlockService_CheckBlocked(t *testing.T) {
	now := time.Date(2026, 9, 1, 7, 45, 0, 0, time.UTC)
	warAt := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  game_runtime.WarStatus
		at      time.Time
		action  string
		blocked bool
	}{
		{"进行中战争封锁对战", game_runtime.WarActive, warAt, "pvp_battle", true},
		{"进行中战争封锁野外遭遇", game_runtime.WarActive, warAt, "pve_encounter", true},
		{"进行中战争封锁商店", game_runtime.WarActive, warAt, "shop_menu", true},
		{"进行中战争封锁背包", game_runtime.WarActive, warAt, "inventory", true},
		{"进行中战争封锁地城", game_runtime.WarActive, warAt, "dungeon_menu", true},
		{"战争入口始终放行", game_runtime.WarActive, warAt, "kingdom_wars", false},
		{"战报始终放行", game_runtime.WarActive, warAt, "war_results", false},
		{"战斗菜单始终放行", game_runtime.WarActive, warAt, "battle_menu", false},
		{"主菜单始终放行", game_runtime.WarActive, warAt, "main_menu", false},
		{"临近窗口内的排期战争封锁", game_runtime.WarScheduled, warAt, "shop_menu", true},
		{"临近窗口外的排期战争放行", game_runtime.WarScheduled, now.Add(2 * time.Hour), "shop_menu", false},
		{"已过开战时刻未结算仍封锁", game_runtime.WarScheduled, now.Add(-10 * time.Minute), "shop_menu", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partRepo := newFakePartRepo()
			partRepo.unfinished["u1"] = []*interfaces.ParticipationWithWar{
				participationRecord("war-1", tt.status, tt.at),
			}
			svc := NewWarBlockService(partRepo, testGameConfig())
			svc.nowFn = func() time.Time { return now }

			decision, err := svc.CheckBlocked(context.Background(), "u1", tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, decision.Blocked)
			if tt.blocked {
				assert.Equal(t, "war-1", decision.WarID)
				assert.Equal(t, "north", decision.DefendingKingdom)
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

// TestWarBlockService_NoParticipation 测试未参战用户不受任何封锁
func TestWarBlockService_NoParticipation(t *testing.T) {
	svc := NewWarBlockService(newFakePartRepo(), testGameConfig())

	decision, err := svc.CheckBlocked(context.Background(), "u1", "shop_menu")
	require.NoError(t, err)
	assert.False(t, decision.Blocked)
}
