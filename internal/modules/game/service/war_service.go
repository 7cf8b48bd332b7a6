package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/warlock"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/interfaces"
	"rpgwar-self/internal/repository/query"
)

// 单场战争结算的锁租约时长，覆盖最慢的结算路径后仍留余量
const warLockTTL = 2 * time.Minute

// 胜方经验倍率
const winExpMultiplier = 2.0

// WarService 王国战争的排期、报名与结算
// StartWar 通过 redis 租约锁互斥，幂等检查兜底：同一场战争
// 无论触发多少次，结算只落地一次，后续调用返回已存结果。
type WarService struct {
	warRepo     interfaces.WarRepository
	partRepo    interfaces.WarParticipationRepository
	userRepo    interfaces.UserRepository
	locker      warlock.Locker
	cfg         *config.GameConfig
	gameMetrics *metrics.GameMetrics
	logger      log.Logger
	nowFn       func() time.Time
	kingdoms    []string
}

// NewWarService 构造函数。kingdoms 为参与轮换的王国全集。
func NewWarService(
	warRepo interfaces.WarRepository,
	partRepo interfaces.WarParticipationRepository,
	userRepo interfaces.UserRepository,
	locker warlock.Locker,
	cfg *config.GameConfig,
	gameMetrics *metrics.GameMetrics,
	logger log.Logger,
	kingdoms []string,
) *WarService {
	return &WarService{
		warRepo:     warRepo,
		partRepo:    partRepo,
		userRepo:    userRepo,
		locker:      locker,
		cfg:         cfg,
		gameMetrics: gameMetrics,
		logger:      logger,
		nowFn:       time.Now,
		kingdoms:    kingdoms,
	}
}

// ScheduleDailyWars 为指定日期排期全部时段的战争
// 守方按（年内天序 × 时段数 + 时段序）对王国数取模轮换，其余王国为攻方。
// 幂等：已存在的（守方王国，时段）组合不会重复创建。
func (s *WarService) ScheduleDailyWars(ctx context.Context, day time.Time) (int, error) {
	if len(s.kingdoms) < 2 {
		return 0, xerrors.New(xerrors.CodeWarScheduleError, "至少需要两个王国才能排期战争")
	}
	loc, err := s.cfg.Location()
	if err != nil {
		return 0, xerrors.Wrap(err, xerrors.CodeWarScheduleError, "解析战争时区失败")
	}
	day = day.In(loc)

	created := 0
	for i, hour := range s.cfg.WarSlots {
		slotTime := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
		defender := s.kingdoms[(day.YearDay()*len(s.cfg.WarSlots)+i)%len(s.kingdoms)]
		attackers := make([]string, 0, len(s.kingdoms)-1)
		for _, k := range s.kingdoms {
			if k != defender {
				attackers = append(attackers, k)
			}
		}

		war := &game_runtime.War{
			ID:                uuid.NewString(),
			Type:              game_runtime.WarKingdomAttack,
			Status:            game_runtime.WarScheduled,
			ScheduledTime:     slotTime,
			DefendingKingdom:  defender,
			AttackingKingdoms: attackers,
			DefenseBuff:       s.cfg.DefenseBuff,
			CreatedAt:         s.nowFn(),
		}
		inserted, err := s.warRepo.CreateScheduled(ctx, war)
		if err != nil {
			return created, xerrors.Wrap(err, xerrors.CodeWarScheduleError, "创建排期战争失败").WithRetryable()
		}
		if inserted {
			created++
			s.logger.Info("【战争调度】新建排期",
				"war_id", war.ID, "defender", defender, "scheduled_time", slotTime)
		}
	}
	return created, nil
}

// JoinWar 玩家报名参战
// 只有 scheduled 状态接受报名（active 后部队封存）；
// 角色由玩家所属王国决定，与 role 请求不符时拒绝。
func (s *WarService) JoinWar(ctx context.Context, warID, userID string, role game_runtime.WarRole) (*game_runtime.WarParticipation, error) {
	war, err := s.warRepo.GetByID(ctx, warID)
	if err != nil {
		return nil, err
	}
	if war.Status != game_runtime.WarScheduled {
		return nil, xerrors.New(xerrors.CodeWarSquadSealed, "").WithWar(warID)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Kingdom == "" {
		return nil, xerrors.New(xerrors.CodeInvalidRequest, "未加入王国的玩家不能参战").WithUser(userID)
	}

	switch role {
	case game_runtime.RoleDefender:
		if user.Kingdom != war.DefendingKingdom {
			return nil, xerrors.Newf(xerrors.CodeInvalidRequest, "王国 %s 不是本场守方", user.Kingdom).WithWar(warID)
		}
	case game_runtime.RoleAttacker:
		if !contains(war.AttackingKingdoms, user.Kingdom) {
			return nil, xerrors.Newf(xerrors.CodeInvalidRequest, "王国 %s 不在本场攻方之列", user.Kingdom).WithWar(warID)
		}
	default:
		return nil, xerrors.Newf(xerrors.CodeInvalidParams, "非法参战角色: %s", role)
	}

	p := &game_runtime.WarParticipation{
		ID:       uuid.NewString(),
		WarID:    warID,
		UserID:   userID,
		Kingdom:  user.Kingdom,
		Role:     role,
		Snapshot: user.Snapshot(),
		JoinedAt: s.nowFn(),
	}
	if err := s.partRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("【战争】玩家报名参战", "war_id", warID, "user_id", userID, "role", role)
	return p, nil
}

// GetWar 按 ID 查询战争。
func (s *WarService) GetWar(ctx context.Context, warID string) (*game_runtime.War, error) {
	return s.warRepo.GetByID(ctx, warID)
}

// CurrentWar 查询某王国当前的战争（进行中或当日未结束场次）。
func (s *WarService) CurrentWar(ctx context.Context, kingdom string) (*game_runtime.War, error) {
	return s.warRepo.FindCurrentByKingdom(ctx, kingdom)
}

// WarsInWindow 查询窗口内的排期战争，调度任务用它定位到点的场次。
func (s *WarService) WarsInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return s.warRepo.ListScheduledInWindow(ctx, from, to)
}

// FinishedInWindow 查询窗口内刚结束的战争，战后恢复任务使用。
func (s *WarService) FinishedInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return s.warRepo.ListFinishedInWindow(ctx, from, to)
}

// History 分页查询战争历史。
func (s *WarService) History(ctx context.Context, q query.WarQuery) ([]*game_runtime.War, error) {
	return s.warRepo.ListHistory(ctx, q)
}

// Participants 列出某场战争的参战记录。
func (s *WarService) Participants(ctx context.Context, warID string) ([]*game_runtime.WarParticipation, error) {
	return s.partRepo.ListByWar(ctx, warID)
}

// MarkRestored 给战争打上战后恢复标记，首次打标返回 true
// 标记落库，进程重启后恢复任务也不会对同一场战争重复发通知。
func (s *WarService) MarkRestored(ctx context.Context, warID string) (bool, error) {
	return s.warRepo.MarkRestored(ctx, warID)
}

// StartWar 触发一场战争的结算，幂等
// 已结束的战争直接返回已存结果；scheduled 状态先封存部队（置 active）再结算；
// active 状态视作上次结算中断后的续跑。整个过程持有 redis 租约锁。
func (s *WarService) StartWar(ctx context.Context, warID string) (*game_runtime.WarResult, error) {
	release, acquired, err := s.locker.Acquire(ctx, warID, warLockTTL)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeWarLocked, "获取战争锁失败").WithWar(warID).WithRetryable()
	}
	if !acquired {
		return nil, xerrors.New(xerrors.CodeWarLocked, "战争正在结算中").WithWar(warID).WithRetryable()
	}
	defer release()

	war, err := s.warRepo.GetByID(ctx, warID)
	if err != nil {
		return nil, err
	}

	participations, err := s.partRepo.ListByWar(ctx, warID)
	if err != nil {
		return nil, err
	}

	switch war.Status {
	case game_runtime.WarFinished:
		// 幂等返回：结果完全由已落库的字段重建
		return buildWarResult(war, len(participations)), nil
	case game_runtime.WarScheduled:
		ok, err := s.warRepo.MarkActive(ctx, warID, s.nowFn())
		if err != nil {
			return nil, err
		}
		if !ok {
			// 状态已被并发触发推进，重读后按新状态处理
			war, err = s.warRepo.GetByID(ctx, warID)
			if err != nil {
				return nil, err
			}
			if war.Status == game_runtime.WarFinished {
				return buildWarResult(war, len(participations)), nil
			}
		} else {
			war.Status = game_runtime.WarActive
		}
	case game_runtime.WarActive:
		s.logger.Warn("【战争】续跑中断的结算", "war_id", warID)
	}

	// 状态机校验：只有能推进到 finished 的状态才允许结算
	if !war.Status.CanTransitionTo(game_runtime.WarFinished) {
		return nil, xerrors.Newf(xerrors.CodeWarNotScheduled, "战争状态 %s 不允许结算", war.Status).WithWar(warID)
	}

	started := s.nowFn()
	s.resolve(war, participations)
	finishedAt := s.nowFn()
	war.FinishedAt = &finishedAt

	if err := s.warRepo.FinishWar(ctx, war, participations); err != nil {
		return nil, err
	}
	if s.gameMetrics != nil {
		s.gameMetrics.ObserveWarResolution(string(war.WinnerRole), s.nowFn().Sub(started))
	}
	s.logger.Info("【战争】结算完成",
		"war_id", warID,
		"defender", war.DefendingKingdom,
		"winner_role", war.WinnerRole,
		"winning_kingdom", war.WinningKingdom,
		"attack_score", war.AttackScore,
		"defense_score", war.DefenseScore,
		"margin", war.Margin,
		"participants", len(participations),
	)
	return buildWarResult(war, len(participations)), nil
}

// contribution 单条参战记录对本方比分的贡献。
func contribution(p *game_runtime.WarParticipation) float64 {
	snap := p.Snapshot
	base := float64(snap.Level) * 5
	if p.Role == game_runtime.RoleAttacker {
		return float64(snap.Strength) + float64(snap.Agility)/2 + base
	}
	return float64(snap.Armor) + float64(snap.HP)/10 + base
}

// resolve 聚合比分、判定胜负并在内存中算好全部奖励。
// 判定规则：守方坐拥地利，攻方必须以压倒性优势取胜——
// attack_score 必须超过 defense_score 的获胜倍率，否则守方获胜。
func (s *WarService) resolve(war *game_runtime.War, participations []*game_runtime.WarParticipation) {
	var attackScore, defenseScore float64
	for _, p := range participations {
		if p.Role == game_runtime.RoleAttacker {
			attackScore += contribution(p)
		} else {
			defenseScore += contribution(p)
		}
	}
	buff := war.DefenseBuff
	if buff <= 0 {
		buff = s.cfg.DefenseBuff
	}
	defenseScore *= buff

	attackersWin := attackScore > defenseScore*s.cfg.AttackWinRatio

	war.AttackScore = attackScore
	war.DefenseScore = defenseScore
	war.Margin = defenseScore - attackScore
	if attackersWin {
		war.WinnerRole = game_runtime.RoleAttacker
		war.WinningKingdom = s.topAttackingKingdom(participations)
	} else {
		war.WinnerRole = game_runtime.RoleDefender
		war.WinningKingdom = war.DefendingKingdom
	}

	// 转移金额与分差成正比，以基础金池为上限
	if defenseScore > 0 {
		transferred := float64(s.cfg.WarBaseMoney) * math.Abs(war.Margin) / defenseScore
		if transferred > float64(s.cfg.WarBaseMoney) {
			transferred = float64(s.cfg.WarBaseMoney)
		}
		war.MoneyTransferred = int64(transferred)
	}

	s.distributeRewards(war, participations)
}

// topAttackingKingdom 攻方获胜时，战利品归贡献最高的攻方王国。
func (s *WarService) topAttackingKingdom(participations []*game_runtime.WarParticipation) string {
	totals := make(map[string]float64)
	for _, p := range participations {
		if p.Role == game_runtime.RoleAttacker {
			totals[p.Kingdom] += contribution(p)
		}
	}
	best, bestScore := "", -1.0
	for _, k := range s.kingdoms {
		if score, ok := totals[k]; ok && score > bestScore {
			best, bestScore = k, score
		}
	}
	return best
}

// distributeRewards 按个人贡献占比分配经验与金币
// 经验双方都有（胜方有倍率），金币只发给胜方。
func (s *WarService) distributeRewards(war *game_runtime.War, participations []*game_runtime.WarParticipation) {
	sideTotals := map[game_runtime.WarRole]float64{}
	for _, p := range participations {
		sideTotals[p.Role] += contribution(p)
	}

	var expDistributed int64
	for _, p := range participations {
		total := sideTotals[p.Role]
		if total <= 0 {
			continue
		}
		share := contribution(p) / total

		exp := float64(s.cfg.WarBaseExp) * share
		if p.Role == war.WinnerRole {
			exp *= winExpMultiplier
			p.RewardMoney = int64(float64(war.MoneyTransferred) * share)
		}
		p.RewardExp = int64(exp)
		expDistributed += p.RewardExp
	}
	war.ExpDistributed = expDistributed
}

func buildWarResult(war *game_runtime.War, participants int) *game_runtime.WarResult {
	return &game_runtime.WarResult{
		WarID:            war.ID,
		DefendingKingdom: war.DefendingKingdom,
		WinnerRole:       war.WinnerRole,
		WinningKingdom:   war.WinningKingdom,
		AttackScore:      war.AttackScore,
		DefenseScore:     war.DefenseScore,
		Margin:           war.Margin,
		MoneyTransferred: war.MoneyTransferred,
		ExpDistributed:   war.ExpDistributed,
		Participants:     participants,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
