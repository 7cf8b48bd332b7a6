// Package service 聚合游戏服的业务服务实现：回合制战斗引擎、王国战争结算与参战行为封锁。
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/interfaces"
)

// 阵营命名约定：PvE 下玩家在 players 侧，怪物单独一侧；PvP 下每个玩家各自一侧。
const (
	sidePlayers = "players"
	sideMonster = "monster"
)

// 每次非 none 攻击消耗的法力
const attackManaCost = 2

// BattleService 回合制战斗引擎
// 同一会话的所有状态变更通过会话级互斥锁串行化，
// 落库时再由乐观并发控制兜底，防止多实例部署下的并发结算。
type BattleService struct {
	sessionRepo interfaces.BattleSessionRepository
	userRepo    interfaces.UserRepository
	monsterRepo interfaces.MonsterRepository
	cfg         *config.GameConfig
	gameMetrics *metrics.GameMetrics
	logger      log.Logger
	nowFn       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBattleService 构造函数。
func NewBattleService(
	sessionRepo interfaces.BattleSessionRepository,
	userRepo interfaces.UserRepository,
	monsterRepo interfaces.MonsterRepository,
	cfg *config.GameConfig,
	gameMetrics *metrics.GameMetrics,
	logger log.Logger,
) *BattleService {
	return &BattleService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		monsterRepo: monsterRepo,
		cfg:         cfg,
		gameMetrics: gameMetrics,
		logger:      logger,
		nowFn:       time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockFor 取会话级互斥锁，首次访问时创建。
// 锁表只增不减：会话量级有限，结束的会话锁留在表里代价可忽略。
func (s *BattleService) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// StartEncounter 发起一场 PvE 遭遇战
// 按玩家等级挑选怪物模板并截取双方属性快照，
// 创建后立即推进到第 1 回合的攻击选择阶段。
func (s *BattleService) StartEncounter(ctx context.Context, userID string) (*game_runtime.BattleSession, error) {
	if userID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "user_id 不能为空")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 同一玩家同时只允许一场进行中的战斗
	existing, err := s.sessionRepo.FindActiveByPair(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, xerrors.New(xerrors.CodeDuplicateBattle, "").WithBattle(existing.ID).WithUser(userID)
	}

	tmpl, err := s.monsterRepo.PickForLevel(ctx, user.Level)
	if err != nil {
		return nil, err
	}
	monster := tmpl.Spawn(fmt.Sprintf("monster:%s", uuid.NewString()), sideMonster)

	player := user.Snapshot()
	player.Side = sidePlayers

	now := s.nowFn()
	session := &game_runtime.BattleSession{
		ID:           uuid.NewString(),
		Mode:         game_runtime.BattleModePvEInteractive,
		Phase:        game_runtime.PhaseMonsterEncounter,
		Round:        0,
		MaxRounds:    s.cfg.MaxRounds,
		Participants: []*game_runtime.Combatant{&player, monster},
		Pending:      make(map[string]*game_runtime.RoundChoice),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	// 遭遇阶段不等待输入，直接开启第 1 回合
	s.beginRound(session, 1, now)
	if err := s.sessionRepo.Update(ctx, session, 0); err != nil {
		return nil, err
	}

	s.logger.Info("【战斗】遭遇战开始",
		"battle_id", session.ID,
		"user_id", userID,
		"monster", monster.Name,
		"monster_level", monster.Level,
	)
	return session, nil
}

// StartDuel 发起一场 PvP 对决，双方各自成一个阵营。
func (s *BattleService) StartDuel(ctx context.Context, challengerID, opponentID string) (*game_runtime.BattleSession, error) {
	if challengerID == "" || opponentID == "" || challengerID == opponentID {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "对决双方必须是两个不同的玩家")
	}
	challenger, err := s.userRepo.GetByID(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	opponent, err := s.userRepo.GetByID(ctx, opponentID)
	if err != nil {
		return nil, err
	}

	a := challenger.Snapshot()
	a.Side = challengerID
	b := opponent.Snapshot()
	b.Side = opponentID

	now := s.nowFn()
	session := &game_runtime.BattleSession{
		ID:           uuid.NewString(),
		Mode:         game_runtime.BattleModePvPInteractive,
		Phase:        game_runtime.PhaseMonsterEncounter,
		Round:        0,
		MaxRounds:    s.cfg.MaxRounds,
		Participants: []*game_runtime.Combatant{&a, &b},
		Pending:      make(map[string]*game_runtime.RoundChoice),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	existing, err := s.sessionRepo.FindActiveByPair(ctx, session.PairKey())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, xerrors.New(xerrors.CodeDuplicateBattle, "").WithBattle(existing.ID)
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	s.beginRound(session, 1, now)
	if err := s.sessionRepo.Update(ctx, session, 0); err != nil {
		return nil, err
	}

	s.logger.Info("【战斗】对决开始", "battle_id", session.ID, "challenger", challengerID, "opponent", opponentID)
	return session, nil
}

// GetSession 查询战斗会话。
func (s *BattleService) GetSession(ctx context.Context, sessionID string) (*game_runtime.BattleSession, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// SubmitChoice 提交本回合的攻击或闪避选择
// 同一参与者同一阶段只接受第一次提交，重复提交返回过期错误；
// 所有存活玩家都已提交时自动推进阶段并在需要时结算回合。
func (s *BattleService) SubmitChoice(
	ctx context.Context,
	sessionID, participantID string,
	kind game_runtime.ChoiceKind,
	zone game_runtime.BattleZone,
) (*game_runtime.BattleSession, error) {
	if !zone.IsValid() {
		return nil, xerrors.Newf(xerrors.CodeInvalidParams, "非法部位: %s", zone)
	}
	if kind != game_runtime.ChoiceAttack && kind != game_runtime.ChoiceDodge {
		return nil, xerrors.Newf(xerrors.CodeInvalidParams, "非法选择类型: %s", kind)
	}

	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished() {
		return nil, xerrors.New(xerrors.CodeBattleFinished, "").WithBattle(sessionID)
	}
	combatant := session.Participant(participantID)
	if combatant == nil || combatant.Kind != game_runtime.CombatantPlayer {
		return nil, xerrors.New(xerrors.CodeNotInBattle, "").WithBattle(sessionID).WithUser(participantID)
	}
	if !combatant.Alive() {
		return nil, xerrors.New(xerrors.CodeParticipantDead, "").WithBattle(sessionID).WithUser(participantID)
	}
	if !session.AcceptsChoice(kind) {
		return nil, xerrors.Newf(xerrors.CodeWrongPhase, "当前阶段 %s 不接受 %s 选择", session.Phase, kind).
			WithBattle(sessionID)
	}
	if session.HasChoice(participantID, kind) {
		return nil, xerrors.New(xerrors.CodeStaleRound, "本回合选择已提交").WithBattle(sessionID).WithUser(participantID)
	}

	expectedRound := session.Round
	session.SetChoice(participantID, kind, zone)
	s.advanceIfReady(session, s.nowFn())

	if err := s.sessionRepo.Update(ctx, session, expectedRound); err != nil {
		return nil, err
	}
	if session.Finished() {
		s.settleRewards(ctx, session)
	}
	return session, nil
}

// Tick 检查回合截止时间，超时则用缺省选择补齐并结算
// 由定时任务周期性驱动；未超时是正常情况，直接返回当前会话。
func (s *BattleService) Tick(ctx context.Context, sessionID string, now time.Time) (*game_runtime.BattleSession, error) {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished() {
		return session, nil
	}
	if session.RoundDeadline.IsZero() || now.Before(session.RoundDeadline) {
		return session, nil
	}

	// 超时缺省：没有提交的选择按 none 处理（不出手、不闪避）
	kind := game_runtime.ChoiceAttack
	if session.Phase == game_runtime.PhaseDodgeSelection {
		kind = game_runtime.ChoiceDodge
	}
	expectedRound := session.Round
	filled := 0
	for _, c := range session.Participants {
		if c.Kind != game_runtime.CombatantPlayer || !c.Alive() {
			continue
		}
		if !session.HasChoice(c.ID, kind) {
			session.SetChoice(c.ID, kind, game_runtime.ZoneNone)
			filled++
		}
	}
	if filled > 0 {
		s.logger.Warn("【战斗】回合超时，缺省补齐选择",
			"battle_id", sessionID, "round", session.Round, "phase", session.Phase, "filled", filled)
	}

	s.advanceIfReady(session, now)
	if err := s.sessionRepo.Update(ctx, session, expectedRound); err != nil {
		return nil, err
	}
	if session.Finished() {
		s.settleRewards(ctx, session)
	}
	return session, nil
}

// beginRound 开启一个新回合：清空待决选择并重置截止时间。
func (s *BattleService) beginRound(session *game_runtime.BattleSession, round int, now time.Time) {
	session.Round = round
	session.Phase = game_runtime.PhaseAttackSelection
	session.Pending = make(map[string]*game_runtime.RoundChoice)
	session.RoundDeadline = now.Add(s.cfg.RoundTimeout)
	session.UpdatedAt = now
}

// advanceIfReady 在所有存活玩家都已提交当前阶段的选择后推进阶段。
// calculating 阶段是瞬时的：进入即结算。
func (s *BattleService) advanceIfReady(session *game_runtime.BattleSession, now time.Time) {
	kind := game_runtime.ChoiceAttack
	if session.Phase == game_runtime.PhaseDodgeSelection {
		kind = game_runtime.ChoiceDodge
	}
	for _, c := range session.Participants {
		if c.Kind != game_runtime.CombatantPlayer || !c.Alive() {
			continue
		}
		if !session.HasChoice(c.ID, kind) {
			return
		}
	}

	switch session.Phase {
	case game_runtime.PhaseAttackSelection:
		session.Phase = game_runtime.PhaseDodgeSelection
		session.RoundDeadline = now.Add(s.cfg.RoundTimeout)
		session.UpdatedAt = now
	case game_runtime.PhaseDodgeSelection:
		session.Phase = game_runtime.PhaseCalculating
		s.resolveRound(session, now)
	}
}

// 闪避对护甲的增益系数：猜中攻击部位时护甲全额生效
func dodgeMultiplier(dodge, attack game_runtime.BattleZone) float64 {
	if dodge == game_runtime.ZoneNone {
		return 0
	}
	if dodge == attack {
		return 1.0
	}
	return 0.4
}

// monsterZone 怪物的固定节奏：按回合轮转头/身/腿。
func monsterZone(round int) game_runtime.BattleZone {
	zones := []game_runtime.BattleZone{game_runtime.ZoneHead, game_runtime.ZoneBody, game_runtime.ZoneLegs}
	return zones[(round-1)%len(zones)]
}

// resolveRound 结算当前回合
// 行动资格在回合开始时冻结：本回合被打死的单位仍会完成自己的出手，
// 因此双方可以同归于尽（平局）。
func (s *BattleService) resolveRound(session *game_runtime.BattleSession, now time.Time) {
	// 怪物的选择由固定节奏补齐
	for _, c := range session.Participants {
		if c.Kind == game_runtime.CombatantMonster && c.Alive() {
			z := monsterZone(session.Round)
			session.SetChoice(c.ID, game_runtime.ChoiceAttack, z)
			session.SetChoice(c.ID, game_runtime.ChoiceDodge, z)
		}
	}

	var actors []*game_runtime.Combatant
	for _, c := range session.Participants {
		if c.Alive() {
			actors = append(actors, c)
		}
	}

	result := game_runtime.RoundResult{Round: session.Round, ResolvedAt: now}
	for _, attacker := range actors {
		choice := session.Pending[attacker.ID]
		if choice == nil {
			choice = &game_runtime.RoundChoice{Attack: game_runtime.ZoneNone, Dodge: game_runtime.ZoneNone}
		}
		attackZone := choice.Attack
		if !choice.AttackSet {
			attackZone = game_runtime.ZoneNone
		}
		// 法力不足时强制不出手
		if attackZone != game_runtime.ZoneNone && attacker.CurrentMana < attackManaCost {
			attackZone = game_runtime.ZoneNone
		}
		if attackZone == game_runtime.ZoneNone {
			continue
		}
		defender := s.pickTarget(actors, attacker)
		if defender == nil {
			continue
		}
		attacker.CurrentMana -= attackManaCost

		dodgeZone := game_runtime.ZoneNone
		if dc := session.Pending[defender.ID]; dc != nil && dc.DodgeSet {
			dodgeZone = dc.Dodge
		}
		// 伤害 = 力量×攻击系数 − 护甲×闪避增益；攻击部位只参与闪避判定
		damage := int(float64(attacker.Strength)*s.cfg.AttackPower -
			float64(defender.Armor)*dodgeMultiplier(dodgeZone, attackZone))
		if damage < 0 {
			damage = 0
		}
		defender.CurrentHP -= damage
		if defender.CurrentHP < 0 {
			defender.CurrentHP = 0
		}
		result.Entries = append(result.Entries, game_runtime.RoundEntry{
			AttackerID:   attacker.ID,
			DefenderID:   defender.ID,
			AttackZone:   attackZone,
			DodgeZone:    dodgeZone,
			Damage:       damage,
			DefenderHP:   defender.CurrentHP,
			AttackerMana: attacker.CurrentMana,
		})
	}
	session.Rounds = append(session.Rounds, result)
	if s.gameMetrics != nil {
		s.gameMetrics.RoundsResolvedTotal.Inc()
	}

	if s.tryFinish(session, now) {
		return
	}
	s.beginRound(session, session.Round+1, now)
}

// pickTarget 选择第一个存活的敌对单位（按参战顺序）。
func (s *BattleService) pickTarget(actors []*game_runtime.Combatant, attacker *game_runtime.Combatant) *game_runtime.Combatant {
	for _, c := range actors {
		if c.Side != attacker.Side && c.CurrentHP > 0 {
			return c
		}
	}
	// 同回合内目标可能已经倒下，仍允许补刀（行动资格在回合开始时冻结）
	for _, c := range actors {
		if c.Side != attacker.Side {
			return c
		}
	}
	return nil
}

// tryFinish 检查终局条件：唯一存活阵营获胜；打满回合比较血量，相等为平局。
func (s *BattleService) tryFinish(session *game_runtime.BattleSession, now time.Time) bool {
	living := session.LivingSides()

	switch {
	case len(living) == 0:
		session.Draw = true
	case len(living) == 1:
		session.WinnerSide = living[0]
	case session.Round >= session.MaxRounds:
		// 血量判定：严格更高者胜
		best, bestHP, tied := "", -1, false
		for _, side := range living {
			hp := session.SideHP(side)
			if hp > bestHP {
				best, bestHP, tied = side, hp, false
			} else if hp == bestHP {
				tied = true
			}
		}
		if tied {
			session.Draw = true
		} else {
			session.WinnerSide = best
		}
	default:
		return false
	}

	session.Phase = game_runtime.PhaseFinished
	session.RoundDeadline = time.Time{}
	session.UpdatedAt = now
	if session.WinnerSide != "" {
		var alive []*game_runtime.Combatant
		for _, c := range session.Participants {
			if c.Side == session.WinnerSide && c.Alive() {
				alive = append(alive, c)
			}
		}
		if len(alive) == 1 {
			session.WinnerID = alive[0].ID
		}
		session.RewardExp, session.RewardMoney = s.battleRewards(session)
	}
	return true
}

// battleRewards 按败方最高等级计算奖励。
func (s *BattleService) battleRewards(session *game_runtime.BattleSession) (int64, int64) {
	maxLevel := 0
	for _, c := range session.Participants {
		if c.Side != session.WinnerSide && c.Level > maxLevel {
			maxLevel = c.Level
		}
	}
	return int64(maxLevel) * s.cfg.BattleExpPerLevel, int64(maxLevel) * s.cfg.BattleMoneyPerLevel
}

// settleRewards 给胜方玩家入账；奖励入账失败只记日志，不回滚战斗结果。
func (s *BattleService) settleRewards(ctx context.Context, session *game_runtime.BattleSession) {
	outcome := "draw"
	if session.WinnerSide != "" {
		outcome = session.WinnerSide
	}
	if s.gameMetrics != nil {
		s.gameMetrics.RecordBattleFinished(outcome)
	}
	s.logger.Info("【战斗】战斗结束",
		"battle_id", session.ID,
		"rounds", session.Round,
		"winner_side", session.WinnerSide,
		"draw", session.Draw,
	)

	if session.WinnerSide == "" || (session.RewardExp == 0 && session.RewardMoney == 0) {
		return
	}
	for _, c := range session.Participants {
		if c.Kind != game_runtime.CombatantPlayer || c.Side != session.WinnerSide {
			continue
		}
		if err := s.userRepo.ApplyRewards(ctx, c.ID, session.RewardExp, session.RewardMoney); err != nil {
			s.logger.Error("【战斗】奖励入账失败", err, "battle_id", session.ID, "user_id", c.ID)
		}
	}
}
