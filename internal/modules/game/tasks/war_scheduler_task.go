// Package tasks 游戏服的定时任务：王国战争的排期、触发与战后恢复。
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/notify"
	"rpgwar-self/internal/repository/interfaces"
)

// 触发查询窗口的宽限，吸收 cron 触发的秒级抖动
const triggerSlack = 5 * time.Minute

// 开战触发的回看窗口：之前时段触发失败或进程宕机漏掉的场次，
// 留在 scheduled 状态，下一个触发点在这个窗口内把它们捞回来重试。
const startCatchupWindow = 24 * time.Hour

// warOrchestrator 调度任务需要的战争服务能力（在消费端定义）
type warOrchestrator interface {
	ScheduleDailyWars(ctx context.Context, day time.Time) (int, error)
	WarsInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error)
	FinishedInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error)
	StartWar(ctx context.Context, warID string) (*game_runtime.WarResult, error)
	Participants(ctx context.Context, warID string) ([]*game_runtime.WarParticipation, error)
	MarkRestored(ctx context.Context, warID string) (bool, error)
}

// ChatGateway 把任务产生的文本投递到聊天频道。
type ChatGateway interface {
	Send(ctx context.Context, channel, text string) error
}

// WarSchedulerTask 王国战争调度任务
// 按配置时区注册每个时段的三个触发点：开战前通知、开战、战后恢复；
// 每天零点为次日排期，启动时为当天补排。单场战争触发失败只记日志，
// 不影响同时段的其他场次，下一次触发窗口还会兜到它。
type WarSchedulerTask struct {
	warService  warOrchestrator
	userRepo    interfaces.UserRepository
	gateway     ChatGateway
	cfg         *config.GameConfig
	gameMetrics *metrics.GameMetrics
	logger      log.Logger
	channel     string
	nowFn       func() time.Time
	cron        *cron.Cron
}

// NewWarSchedulerTask 创建战争调度任务实例。channel 为战争频道标识。
func NewWarSchedulerTask(
	warService *service.WarService,
	userRepo interfaces.UserRepository,
	gateway ChatGateway,
	cfg *config.GameConfig,
	gameMetrics *metrics.GameMetrics,
	logger log.Logger,
	channel string,
) *WarSchedulerTask {
	return &WarSchedulerTask{
		warService:  warService,
		userRepo:    userRepo,
		gateway:     gateway,
		cfg:         cfg,
		gameMetrics: gameMetrics,
		logger:      logger,
		channel:     channel,
		nowFn:       time.Now,
	}
}

// cronSpec 把"每天 HH:MM"转成六段 cron 表达式。
func cronSpec(minuteOfDay int) string {
	minuteOfDay = ((minuteOfDay % 1440) + 1440) % 1440
	return fmt.Sprintf("0 %d %d * * *", minuteOfDay%60, minuteOfDay/60)
}

// Start 启动定时任务
func (t *WarSchedulerTask) Start() error {
	loc, err := t.cfg.Location()
	if err != nil {
		return err
	}
	t.cron = cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	for _, hour := range t.cfg.WarSlots {
		slotMinute := hour * 60

		// 开战前通知
		if _, err := t.cron.AddFunc(cronSpec(slotMinute-int(t.cfg.PreWarOffset.Minutes())), t.runPreWarNotices); err != nil {
			return fmt.Errorf("注册开战前通知失败: %w", err)
		}
		// 开战触发
		if _, err := t.cron.AddFunc(cronSpec(slotMinute), t.runWarStarts); err != nil {
			return fmt.Errorf("注册开战触发失败: %w", err)
		}
		// 战后恢复
		if _, err := t.cron.AddFunc(cronSpec(slotMinute+int(t.cfg.RestoreDelay.Minutes())), t.runRestores); err != nil {
			return fmt.Errorf("注册战后恢复失败: %w", err)
		}
	}

	// 每天零点为次日排期
	if _, err := t.cron.AddFunc("0 0 0 * * *", func() {
		t.scheduleFor(t.nowFn().In(loc).AddDate(0, 0, 1))
	}); err != nil {
		return fmt.Errorf("注册每日排期失败: %w", err)
	}

	// 启动时为当天补排，进程中午重启也不会丢掉当天的场次
	t.scheduleFor(t.nowFn().In(loc))

	t.cron.Start()
	t.logger.Info("【战争调度】调度任务已启动",
		"timezone", t.cfg.Timezone,
		"slots", t.cfg.WarSlots,
	)
	return nil
}

// Stop 停止定时任务（优雅关闭）
func (t *WarSchedulerTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【战争调度】正在停止调度任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【战争调度】调度任务已停止")
	}
}

// scheduleFor 为指定日期排期，幂等。
func (t *WarSchedulerTask) scheduleFor(day time.Time) {
	ctx := context.Background()
	created, err := t.warService.ScheduleDailyWars(ctx, day)
	if err != nil {
		t.logger.Error("【战争调度】每日排期失败", err, "day", day.Format("2006-01-02"))
		if t.gameMetrics != nil {
			t.gameMetrics.RecordTriggerFailure("schedule")
		}
		return
	}
	if created > 0 {
		t.logger.Info("【战争调度】每日排期完成", "day", day.Format("2006-01-02"), "created", created)
	}
}

// runPreWarNotices 给即将开战的场次发频道通知。
func (t *WarSchedulerTask) runPreWarNotices() {
	ctx := context.Background()
	now := t.nowFn()
	wars, err := t.warService.WarsInWindow(ctx, now, now.Add(t.cfg.PreWarOffset+triggerSlack))
	if err != nil {
		t.logger.Error("【战争调度】查询即将开战场次失败", err)
		if t.gameMetrics != nil {
			t.gameMetrics.RecordTriggerFailure("prewar")
		}
		return
	}
	for _, war := range wars {
		minutesLeft := int(war.ScheduledTime.Sub(now).Round(time.Minute).Minutes())
		text := service.PreWarNoticeText(war, minutesLeft)
		if err := t.gateway.Send(ctx, t.channel, text); err != nil {
			t.logger.Error("【战争调度】开战前通知发送失败", err, "war_id", war.ID)
			continue
		}
		_ = notify.PublishWarEvent(ctx, notify.SubjectWarPreWar, service.PreWarEvent{
			WarID:            war.ID,
			DefendingKingdom: war.DefendingKingdom,
			ScheduledTime:    war.ScheduledTime,
			MinutesLeft:      minutesLeft,
		})
		t.logger.Info("【战争调度】开战前通知已发送", "war_id", war.ID, "minutes_left", minutesLeft)
	}
}

// runWarStarts 触发到点与逾期的战争结算
// 回看窗口覆盖 24 小时：上一个时段触发失败或漏掉的场次仍是 scheduled，
// 这里重新触发（StartWar 幂等，已结束的场次不会被重复结算）。
// 同一时段的全部结算汇成一条频道摘要发送。
func (t *WarSchedulerTask) runWarStarts() {
	ctx := context.Background()
	now := t.nowFn()
	wars, err := t.warService.WarsInWindow(ctx, now.Add(-startCatchupWindow), now.Add(time.Minute))
	if err != nil {
		t.logger.Error("【战争调度】查询到点场次失败", err)
		if t.gameMetrics != nil {
			t.gameMetrics.RecordTriggerFailure("war_start")
		}
		return
	}

	var results []*game_runtime.WarResult
	for _, war := range wars {
		result, err := t.warService.StartWar(ctx, war.ID)
		if err != nil {
			// 单场失败不影响同时段其他场次，留在 scheduled 等下次兜底
			t.logger.Error("【战争调度】战争触发失败", err, "war_id", war.ID)
			if t.gameMetrics != nil {
				t.gameMetrics.RecordTriggerFailure("war_start")
			}
			continue
		}
		results = append(results, result)
		_ = notify.PublishWarEvent(ctx, notify.SubjectWarSummary, service.WarSummaryEvent{Result: result})
	}
	if len(results) == 0 {
		return
	}
	if err := t.gateway.Send(ctx, t.channel, service.WarSlotSummaryText(results)); err != nil {
		t.logger.Error("【战争调度】结算摘要发送失败", err, "wars", len(results))
	}
}

// runRestores 给刚结束的场次做参战者状态恢复。
func (t *WarSchedulerTask) runRestores() {
	ctx := context.Background()
	now := t.nowFn()
	wars, err := t.warService.FinishedInWindow(ctx, now.Add(-t.cfg.RestoreDelay-triggerSlack), now)
	if err != nil {
		t.logger.Error("【战争调度】查询待恢复场次失败", err)
		if t.gameMetrics != nil {
			t.gameMetrics.RecordTriggerFailure("restore")
		}
		return
	}

	for _, war := range wars {
		// 恢复标记落库，重启后不会重复处理
		if war.RestoredAt != nil {
			continue
		}
		participations, err := t.warService.Participants(ctx, war.ID)
		if err != nil {
			t.logger.Error("【战争调度】查询参战记录失败", err, "war_id", war.ID)
			continue
		}
		userIDs := make([]string, 0, len(participations))
		for _, p := range participations {
			userIDs = append(userIDs, p.UserID)
		}
		var restored int64
		if len(userIDs) > 0 {
			// RestoreVitals 幂等，失败时不打标，下次触发重试
			restored, err = t.userRepo.RestoreVitals(ctx, userIDs)
			if err != nil {
				t.logger.Error("【战争调度】参战者恢复失败", err, "war_id", war.ID)
				if t.gameMetrics != nil {
					t.gameMetrics.RecordTriggerFailure("restore")
				}
				continue
			}
		}
		first, err := t.warService.MarkRestored(ctx, war.ID)
		if err != nil {
			t.logger.Error("【战争调度】打恢复标记失败", err, "war_id", war.ID)
			continue
		}
		if !first || restored == 0 {
			// 标记被其他实例抢先，或无人参战，都不发通知
			continue
		}
		t.logger.Info("【战争调度】参战者已恢复", "war_id", war.ID, "restored", restored)

		if err := t.gateway.Send(ctx, t.channel, service.RestoreNoticeText(restored)); err != nil {
			t.logger.Error("【战争调度】恢复通知发送失败", err, "war_id", war.ID)
		}
		_ = notify.PublishWarEvent(ctx, notify.SubjectWarRestore, service.RestoreEvent{WarID: war.ID, Restored: restored})
	}
}
