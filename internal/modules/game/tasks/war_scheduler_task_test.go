package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/entity"
	"rpgwar-self/internal/repository/interfaces"
)

type fakeOrchestrator struct {
	scheduled   []*game_runtime.War
	finished    []*game_runtime.War
	parts       map[string][]*game_runtime.WarParticipation
	startErrFor map[string]error
	started     []string
	scheduleRan int
}

func (f *fakeOrchestrator) ScheduleDailyWars(_ context.Context, _ time.Time) (int, error) {
	f.scheduleRan++
	return len(f.scheduled), nil
}

func (f *fakeOrchestrator) WarsInWindow(_ context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	var out []*game_runtime.War
	for _, w := range f.scheduled {
		if w.Status == game_runtime.WarScheduled && !w.ScheduledTime.Before(from) && w.ScheduledTime.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeOrchestrator) FinishedInWindow(_ context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	var out []*game_runtime.War
	for _, w := range f.finished {
		if !w.ScheduledTime.Before(from) && w.ScheduledTime.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeOrchestrator) StartWar(_ context.Context, warID string) (*game_runtime.WarResult, error) {
	f.started = append(f.started, warID)
	if err := f.startErrFor[warID]; err != nil {
		return nil, err
	}
	for _, w := range f.scheduled {
		if w.ID == warID {
			w.Status = game_runtime.WarFinished
		}
	}
	return &game_runtime.WarResult{
		WarID:            warID,
		DefendingKingdom: "north",
		WinnerRole:       game_runtime.RoleDefender,
		WinningKingdom:   "north",
	}, nil
}

func (f *fakeOrchestrator) Participants(_ context.Context, warID string) ([]*game_runtime.WarParticipation, error) {
	return f.parts[warID], nil
}

func (f *fakeOrchestrator) MarkRestored(_ context.Context, warID string) (bool, error) {
	for _, w := range f.finished {
		if w.ID == warID {
			if w.RestoredAt != nil {
				return false, nil
			}
			at := w.ScheduledTime.Add(5 * time.Minute)
			w.RestoredAt = &at
			return true, nil
		}
	}
	return false, nil
}

type fakeGateway struct {
	messages []string
	sendErr  error
}

func (f *fakeGateway) Send(_ context.Context, _ string, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, text)
	return nil
}

type fakeUserRepo struct {
	restored [][]string
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return nil, xerrors.New(xerrors.CodeUserNotFound, "").WithUser(id)
}

func (f *fakeUserRepo) ApplyRewards(_ context.Context, _ string, _, _ int64) error { return nil }

func (f *fakeUserRepo) RestoreVitals(_ context.Context, userIDs []string) (int64, error) {
	f.restored = append(f.restored, userIDs)
	return int64(len(userIDs)), nil
}

var _ interfaces.UserRepository = (*fakeUserRepo)(nil)

func testConfig() *config.GameConfig {
	return &config.GameConfig{
		MaxRounds:      10,
		RoundTimeout:   30 * time.Second,
		Timezone:       "Asia/Tashkent",
		WarSlots:       []int{8, 13, 18},
		PreWarOffset:   30 * time.Minute,
		RestoreDelay:   5 * time.Minute,
		ImminentWindow: 30 * time.Minute,
		DefenseBuff:    1.2,
		AttackWinRatio: 1.5,
	}
}

func newTestTask(orch *fakeOrchestrator, gateway *fakeGateway, users *fakeUserRepo, now time.Time) *WarSchedulerTask {
	t := &WarSchedulerTask{
		warService: orch,
		userRepo:   users,
		gateway:    gateway,
		cfg:        testConfig(),
		logger:     log.GetLogger(),
		channel:    "kingdom-wars",
		nowFn:      func() time.Time { return now },
	}
	return t
}

// TestCronSpec 测试每日触发点的 cron 表达式生成
func TestCronSpec(t *testing.T) {
	assert.Equal(t, "0 0 8 * * *", cronSpec(8*60))
	assert.Equal(t, "0 30 7 * * *", cronSpec(8*60-30))
	assert.Equal(t, "0 5 18 * * *", cronSpec(18*60+5))
	// 跨零点回绕
	assert.Equal(t, "0 30 23 * * *", cronSpec(-30))
}

// TestWarSchedulerTask_RunWarStarts_FailureIsolation 测试单场失败不影响其他场次
func TestWarSchedulerTask_RunWarStarts_FailureIsolation(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	orch := &fakeOrchestrator{
		scheduled: []*game_runtime.War{
			{ID: "war-bad", Status: game_runtime.WarScheduled, ScheduledTime: now},
			{ID: "war-good", Status: game_runtime.WarScheduled, ScheduledTime: now},
		},
		startErrFor: map[string]error{"war-bad": errors.New("db down")},
	}
	gateway := &fakeGateway{}
	task := newTestTask(orch, gateway, &fakeUserRepo{}, now)

	task.runWarStarts()

	// 两场都被触发，失败的那场不阻断后续
	assert.Equal(t, []string{"war-bad", "war-good"}, orch.started)
	// 只有成功的场次进结算摘要
	require.Len(t, gateway.messages, 1)
	assert.Contains(t, gateway.messages[0], "north")
}

// TestWarSchedulerTask_RunWarStarts_RetriesOverdue 测试漏掉的场次在下一个触发点重试
func TestWarSchedulerTask_RunWarStarts_RetriesOverdue(t *testing.T) {
	morning := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	orch := &fakeOrchestrator{
		scheduled: []*game_runtime.War{
			{ID: "war-bad", Status: game_runtime.WarScheduled, ScheduledTime: morning},
		},
		startErrFor: map[string]error{"war-bad": errors.New("db down")},
	}
	gateway := &fakeGateway{}
	task := newTestTask(orch, gateway, &fakeUserRepo{}, morning)

	task.runWarStarts()
	assert.Equal(t, []string{"war-bad"}, orch.started)
	assert.Empty(t, gateway.messages)

	// 故障恢复后，13 点的触发点把早上漏掉的场次捞回来结算
	delete(orch.startErrFor, "war-bad")
	task.nowFn = func() time.Time { return morning.Add(5 * time.Hour) }

	task.runWarStarts()
	assert.Equal(t, []string{"war-bad", "war-bad"}, orch.started)
	require.Len(t, gateway.messages, 1)

	// 已结束的场次不会再次进入触发窗口
	task.runWarStarts()
	assert.Len(t, orch.started, 2)
}

// TestWarSchedulerTask_RunWarStarts_SingleSlotSummary 测试同一时段多场战争只发一条合并摘要
func TestWarSchedulerTask_RunWarStarts_SingleSlotSummary(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	orch := &fakeOrchestrator{
		scheduled: []*game_runtime.War{
			{ID: "war-1", Status: game_runtime.WarScheduled, ScheduledTime: now},
			{ID: "war-2", Status: game_runtime.WarScheduled, ScheduledTime: now},
		},
	}
	gateway := &fakeGateway{}
	task := newTestTask(orch, gateway, &fakeUserRepo{}, now)

	task.runWarStarts()

	assert.Equal(t, []string{"war-1", "war-2"}, orch.started)
	require.Len(t, gateway.messages, 1)
}

// TestWarSchedulerTask_RunPreWarNotices 测试开战前通知
func TestWarSchedulerTask_RunPreWarNotices(t *testing.T) {
	now := time.Date(2026, 9, 1, 7, 30, 0, 0, time.UTC)
	orch := &fakeOrchestrator{
		scheduled: []*game_runtime.War{
			{
				ID:                "war-1",
				Status:            game_runtime.WarScheduled,
				ScheduledTime:     now.Add(30 * time.Minute),
				DefendingKingdom:  "north",
				AttackingKingdoms: []string{"south", "east"},
			},
			// 窗口之外的场次不通知
			{ID: "war-later", Status: game_runtime.WarScheduled, ScheduledTime: now.Add(5 * time.Hour)},
		},
	}
	gateway := &fakeGateway{}
	task := newTestTask(orch, gateway, &fakeUserRepo{}, now)

	task.runPreWarNotices()

	require.Len(t, gateway.messages, 1)
	assert.Contains(t, gateway.messages[0], "north")
	assert.Contains(t, gateway.messages[0], "30 分钟")
}

// TestWarSchedulerTask_RunRestores 测试战后恢复与防重
func TestWarSchedulerTask_RunRestores(t *testing.T) {
	warAt := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	now := warAt.Add(5 * time.Minute)
	orch := &fakeOrchestrator{
		finished: []*game_runtime.War{
			{ID: "war-1", Status: game_runtime.WarFinished, ScheduledTime: warAt},
		},
		parts: map[string][]*game_runtime.WarParticipation{
			"war-1": {
				{ID: "p1", WarID: "war-1", UserID: "u1"},
				{ID: "p2", WarID: "war-1", UserID: "u2"},
			},
		},
	}
	gateway := &fakeGateway{}
	users := &fakeUserRepo{}
	task := newTestTask(orch, gateway, users, now)

	task.runRestores()
	require.Len(t, users.restored, 1)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users.restored[0])
	require.Len(t, gateway.messages, 1)

	// 第二次触发不重复恢复
	task.runRestores()
	assert.Len(t, users.restored, 1)
	assert.Len(t, gateway.messages, 1)

	// 恢复标记落库：进程重启（新任务实例）后同样不重发
	restarted := newTestTask(orch, gateway, users, now)
	restarted.runRestores()
	assert.Len(t, users.restored, 1)
	assert.Len(t, gateway.messages, 1)
}
