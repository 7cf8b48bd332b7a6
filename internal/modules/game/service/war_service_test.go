package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/query"
)

var testKingdoms = []string{"north", "south", "east", "west"}

func scheduledWar(id string, at time.Time) *game_runtime.War {
	return &game_runtime.War{
		ID:                id,
		Type:              game_runtime.WarKingdomAttack,
		Status:            game_runtime.WarScheduled,
		ScheduledTime:     at,
		DefendingKingdom:  "north",
		AttackingKingdoms: []string{"south", "east", "west"},
		DefenseBuff:       1.2,
		CreatedAt:         at.Add(-time.Hour),
	}
}

// attackerSnapshot 攻方战力 strength + agility/2 + level×5 = 150
func attackerSnapshot(userID string) game_runtime.Combatant {
	return game_runtime.Combatant{
		ID: userID, Kind: game_runtime.CombatantPlayer, Kingdom: "south",
		Level: 5, Strength: 100, Agility: 50, Armor: 10, HP: 200, CurrentHP: 200,
	}
}

// defenderSnapshot 守方战力 armor + hp/10 + level×5 = 100（加成前）
func defenderSnapshot(userID string) game_runtime.Combatant {
	return game_runtime.Combatant{
		ID: userID, Kind: game_runtime.CombatantPlayer, Kingdom: "north",
		Level: 4, Strength: 30, Agility: 10, Armor: 50, HP: 300, CurrentHP: 300,
	}
}

func newTestWarService(warRepo *fakeWarRepo, partRepo *fakePartRepo, users *fakeUserRepo) (*WarService, *fakeLocker) {
	locker := newFakeLocker()
	svc := NewWarService(warRepo, partRepo, users, locker, testGameConfig(), nil, testLogger(), testKingdoms)
	return svc, locker
}

// TestWarService_StartWar_DefenderHolds 测试守方优势判定与奖励分配
// 攻方 150 对守方 100×1.2=120：150 未超过 120×1.5=180，守方获胜，分差 -30。
func TestWarService_StartWar_DefenderHolds(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	warRepo := newFakeWarRepo(scheduledWar("war-1", at))
	partRepo := newFakePartRepo()
	users := newFakeUserRepo()
	svc, locker := newTestWarService(warRepo, partRepo, users)
	ctx := context.Background()

	partRepo.records = []*game_runtime.WarParticipation{
		{ID: "p1", WarID: "war-1", UserID: "atk", Kingdom: "south", Role: game_runtime.RoleAttacker, Snapshot: attackerSnapshot("atk")},
		{ID: "p2", WarID: "war-1", UserID: "def", Kingdom: "north", Role: game_runtime.RoleDefender, Snapshot: defenderSnapshot("def")},
	}

	result, err := svc.StartWar(ctx, "war-1")
	require.NoError(t, err)

	assert.Equal(t, game_runtime.RoleDefender, result.WinnerRole)
	assert.Equal(t, "north", result.WinningKingdom)
	assert.InDelta(t, 150.0, result.AttackScore, 1e-9)
	assert.InDelta(t, 120.0, result.DefenseScore, 1e-9)
	assert.InDelta(t, -30.0, result.Margin, 1e-9)
	assert.Equal(t, 2, result.Participants)

	// 转移金额 1000 × |−30| / 120 = 250，全额归唯一守方
	assert.Equal(t, int64(250), result.MoneyTransferred)
	finished := warRepo.finished["war-1"]
	require.Len(t, finished, 2)
	byUser := map[string]*game_runtime.WarParticipation{}
	for _, p := range finished {
		byUser[p.UserID] = p
	}
	assert.Equal(t, int64(250), byUser["def"].RewardMoney)
	assert.Equal(t, int64(1000), byUser["def"].RewardExp) // 500 × 胜方倍率 2
	assert.Equal(t, int64(0), byUser["atk"].RewardMoney)
	assert.Equal(t, int64(500), byUser["atk"].RewardExp)
	assert.Equal(t, int64(1500), result.ExpDistributed)

	assert.Equal(t, 1, locker.releases)
}

// TestWarService_StartWar_Idempotent 测试重复触发返回完全一致的已存结果
func TestWarService_StartWar_Idempotent(t *testing.T) {
	at := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)
	warRepo := newFakeWarRepo(scheduledWar("war-1", at))
	partRepo := newFakePartRepo()
	partRepo.records = []*game_runtime.WarParticipation{
		{ID: "p1", WarID: "war-1", UserID: "atk", Kingdom: "south", Role: game_runtime.RoleAttacker, Snapshot: attackerSnapshot("atk")},
		{ID: "p2", WarID: "war-1", UserID: "def", Kingdom: "north", Role: game_runtime.RoleDefender, Snapshot: defenderSnapshot("def")},
	}
	svc, _ := newTestWarService(warRepo, partRepo, newFakeUserRepo())
	ctx := context.Background()

	first, err := svc.StartWar(ctx, "war-1")
	require.NoError(t, err)
	second, err := svc.StartWar(ctx, "war-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// 结算只落地一次
	war, err := warRepo.GetByID(ctx, "war-1")
	require.NoError(t, err)
	assert.Equal(t, game_runtime.WarFinished, war.Status)
}

// TestWarService_StartWar_Locked 测试锁被占用时返回可重试错误
func TestWarService_StartWar_Locked(t *testing.T) {
	at := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	warRepo := newFakeWarRepo(scheduledWar("war-1", at))
	svc, locker := newTestWarService(warRepo, newFakePartRepo(), newFakeUserRepo())
	locker.held["war-1"] = true

	_, err := svc.StartWar(context.Background(), "war-1")
	assert.True(t, xerrors.IsCode(err, xerrors.CodeWarLocked))
	appErr := xerrors.FromError(err)
	require.NotNil(t, appErr)
	assert.True(t, appErr.Retryable)
}

// TestWarService_StartWar_RejectsBadStatus 测试状态机校验：无法推进到 finished 的状态拒绝结算
func TestWarService_StartWar_RejectsBadStatus(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	war := scheduledWar("war-1", at)
	war.Status = game_runtime.WarStatus("cancelled")
	warRepo := newFakeWarRepo(war)
	svc, _ := newTestWarService(warRepo, newFakePartRepo(), newFakeUserRepo())

	_, err := svc.StartWar(context.Background(), "war-1")
	assert.True(t, xerrors.IsCode(err, xerrors.CodeWarNotScheduled))

	// 没有任何结算被落地
	stored, err := warRepo.GetByID(context.Background(), "war-1")
	require.NoError(t, err)
	assert.Equal(t, game_runtime.WarStatus("cancelled"), stored.Status)
}

// TestWarService_StartWar_AttackersOverwhelm 测试攻方压倒性优势取胜
func TestWarService_StartWar_AttackersOverwhelm(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	warRepo := newFakeWarRepo(scheduledWar("war-1", at))
	partRepo := newFakePartRepo()
	// 三个攻方共 450，守方 120×1.5=180 < 450
	for i, uid := range []string{"a1", "a2", "a3"} {
		partRepo.records = append(partRepo.records, &game_runtime.WarParticipation{
			ID: uid, WarID: "war-1", UserID: uid, Kingdom: testKingdoms[1+i%2],
			Role: game_runtime.RoleAttacker, Snapshot: attackerSnapshot(uid),
		})
	}
	partRepo.records = append(partRepo.records, &game_runtime.WarParticipation{
		ID: "d1", WarID: "war-1", UserID: "def", Kingdom: "north",
		Role: game_runtime.RoleDefender, Snapshot: defenderSnapshot("def"),
	})
	svc, _ := newTestWarService(warRepo, partRepo, newFakeUserRepo())

	result, err := svc.StartWar(context.Background(), "war-1")
	require.NoError(t, err)

	assert.Equal(t, game_runtime.RoleAttacker, result.WinnerRole)
	// 战利品归贡献最高的攻方王国：south 两人 300 > east 150
	assert.Equal(t, "south", result.WinningKingdom)
	assert.InDelta(t, 450.0, result.AttackScore, 1e-9)
}

// TestWarService_ScheduleDailyWars 测试每日排期的幂等性
func TestWarService_ScheduleDailyWars(t *testing.T) {
	warRepo := newFakeWarRepo()
	svc, _ := newTestWarService(warRepo, newFakePartRepo(), newFakeUserRepo())
	ctx := context.Background()
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	created, err := svc.ScheduleDailyWars(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// 重复排期不新建
	created, err = svc.ScheduleDailyWars(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	loc, err := testGameConfig().Location()
	require.NoError(t, err)
	from := time.Date(2026, 9, 2, 0, 0, 0, 0, loc)
	wars, err := svc.WarsInWindow(ctx, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, wars, 3)

	hours := map[int]bool{}
	for _, w := range wars {
		hours[w.ScheduledTime.In(loc).Hour()] = true
		assert.Len(t, w.AttackingKingdoms, len(testKingdoms)-1)
		assert.NotContains(t, w.AttackingKingdoms, w.DefendingKingdom)
		assert.InDelta(t, 1.2, w.DefenseBuff, 1e-9)
	}
	assert.Equal(t, map[int]bool{8: true, 13: true, 18: true}, hours)
}

// TestWarService_JoinWar 测试报名与部队封存
func TestWarService_JoinWar(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	warRepo := newFakeWarRepo(scheduledWar("war-1", at))
	partRepo := newFakePartRepo()
	defender := testPlayer("def")
	defender.Kingdom = "north"
	attacker := testPlayer("atk")
	attacker.Kingdom = "south"
	outsider := testPlayer("out")
	outsider.Kingdom = "south"
	users := newFakeUserRepo(defender, attacker, outsider)
	svc, _ := newTestWarService(warRepo, partRepo, users)
	ctx := context.Background()

	p, err := svc.JoinWar(ctx, "war-1", "def", game_runtime.RoleDefender)
	require.NoError(t, err)
	assert.Equal(t, "north", p.Kingdom)
	assert.Equal(t, defender.Strength, p.Snapshot.Strength)

	// 王国与角色不符
	_, err = svc.JoinWar(ctx, "war-1", "out", game_runtime.RoleDefender)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeInvalidRequest))

	// 重复报名
	_, err = svc.JoinWar(ctx, "war-1", "def", game_runtime.RoleDefender)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeWarAlreadyJoined))

	// active 后部队封存
	_, err = warRepo.MarkActive(ctx, "war-1", at)
	require.NoError(t, err)
	_, err = svc.JoinWar(ctx, "war-1", "atk", game_runtime.RoleAttacker)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeWarSquadSealed))
}

// TestWarService_History 测试战争历史的过滤与排序
func TestWarService_History(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	w1 := scheduledWar("war-1", day.Add(8*time.Hour))
	w1.Status = game_runtime.WarFinished
	w2 := scheduledWar("war-2", day.Add(13*time.Hour))
	w3 := scheduledWar("war-3", day.Add(18*time.Hour))
	w3.DefendingKingdom = "south"
	w3.AttackingKingdoms = []string{"north", "east", "west"}

	warRepo := newFakeWarRepo(w1, w2, w3)
	svc, _ := newTestWarService(warRepo, newFakePartRepo(), newFakeUserRepo())
	ctx := context.Background()

	// 无过滤：按开战时间倒序
	all, err := svc.History(ctx, query.WarQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "war-3", all[0].ID)
	assert.Equal(t, "war-1", all[2].ID)

	// 按状态过滤
	finished, err := svc.History(ctx, query.WarQuery{Status: game_runtime.WarFinished})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "war-1", finished[0].ID)

	// 王国过滤同时匹配守方与攻方
	south, err := svc.History(ctx, query.WarQuery{Kingdom: "south"})
	require.NoError(t, err)
	assert.Len(t, south, 3)

	after := day.Add(12 * time.Hour)
	late, err := svc.History(ctx, query.WarQuery{ScheduledAfter: &after})
	require.NoError(t, err)
	assert.Len(t, late, 2)
}
