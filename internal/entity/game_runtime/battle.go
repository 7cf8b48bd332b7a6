// Package game_runtime 定义游戏运行时实体：战斗会话、王国战争及其参战记录。
package game_runtime

import (
	"sort"
	"strings"
	"time"
)

// BattleMode 战斗模式
type BattleMode string

const (
	BattleModePvEInteractive BattleMode = "pve_interactive"
	BattleModePvPInteractive BattleMode = "pvp_interactive"
	BattleModeAuto           BattleMode = "auto"
)

// IsValid 检查战斗模式是否合法
func (m BattleMode) IsValid() bool {
	switch m {
	case BattleModePvEInteractive, BattleModePvPInteractive, BattleModeAuto:
		return true
	default:
		return false
	}
}

// BattlePhase 战斗阶段
// 阶段在一个回合周期内只能前进：
// monster_encounter → attack_selection → dodge_selection → calculating → {attack_selection | finished}
type BattlePhase string

const (
	PhaseMonsterEncounter BattlePhase = "monster_encounter"
	PhaseAttackSelection  BattlePhase = "attack_selection"
	PhaseDodgeSelection   BattlePhase = "dodge_selection"
	PhaseCalculating      BattlePhase = "calculating"
	PhaseFinished         BattlePhase = "finished"
)

// ChoiceKind 回合选择类型
type ChoiceKind string

const (
	ChoiceAttack ChoiceKind = "attack"
	ChoiceDodge  ChoiceKind = "dodge"
)

// BattleZone 攻击/闪避部位
// ZoneNone 是超时缺省选择：不出手、不闪避。
type BattleZone string

const (
	ZoneHead BattleZone = "head"
	ZoneBody BattleZone = "body"
	ZoneLegs BattleZone = "legs"
	ZoneNone BattleZone = "none"
)

// IsValid 检查部位是否合法
func (z BattleZone) IsValid() bool {
	switch z {
	case ZoneHead, ZoneBody, ZoneLegs, ZoneNone:
		return true
	default:
		return false
	}
}

// CombatantKind 参战单位类型
type CombatantKind string

const (
	CombatantPlayer  CombatantKind = "player"
	CombatantMonster CombatantKind = "monster"
)

// Combatant 参战单位的属性快照
// 在遭遇/参战时刻截取，战斗期间不随档案变化。
type Combatant struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        CombatantKind `json:"kind"`
	Side        string        `json:"side"` // 所属阵营，同阵营不互相攻击
	Kingdom     string        `json:"kingdom,omitempty"`
	Level       int           `json:"level"`
	Strength    int           `json:"strength"`
	Armor       int           `json:"armor"`
	Agility     int           `json:"agility"`
	HP          int           `json:"hp"`
	CurrentHP   int           `json:"current_hp"`
	Mana        int           `json:"mana"`
	CurrentMana int           `json:"current_mana"`
}

// Alive 是否存活
func (c *Combatant) Alive() bool {
	return c.CurrentHP > 0
}

// RoundChoice 当前回合某参与者已提交的选择
// 攻击与闪避分阶段提交，Set 标记用于区分"未提交"与"主动选 none"。
type RoundChoice struct {
	Attack    BattleZone `json:"attack,omitempty"`
	AttackSet bool       `json:"attack_set,omitempty"`
	Dodge     BattleZone `json:"dodge,omitempty"`
	DodgeSet  bool       `json:"dodge_set,omitempty"`
}

// RoundEntry 单次攻防的结算明细
type RoundEntry struct {
	AttackerID   string     `json:"attacker_id"`
	DefenderID   string     `json:"defender_id"`
	AttackZone   BattleZone `json:"attack_zone"`
	DodgeZone    BattleZone `json:"dodge_zone"`
	Damage       int        `json:"damage"`
	DefenderHP   int        `json:"defender_hp"`
	AttackerMana int        `json:"attacker_mana"`
}

// RoundResult 一个回合的结算记录，追加写入会话日志
type RoundResult struct {
	Round      int          `json:"round"`
	Entries    []RoundEntry `json:"entries"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// BattleSession 战斗会话
// phase=finished 后对外只读，仅保留作历史记录。
type BattleSession struct {
	ID            string                  `json:"id"`
	Mode          BattleMode              `json:"mode"`
	Phase         BattlePhase             `json:"phase"`
	Round         int                     `json:"round"`
	MaxRounds     int                     `json:"max_rounds"`
	Participants  []*Combatant            `json:"participants"`
	Pending       map[string]*RoundChoice `json:"pending"`
	RoundDeadline time.Time               `json:"round_deadline"`
	Rounds        []RoundResult           `json:"rounds"`

	WinnerSide  string `json:"winner_side,omitempty"`
	WinnerID    string `json:"winner_id,omitempty"` // 胜方唯一存活单位，多人阵营时为空
	Draw        bool   `json:"draw,omitempty"`
	RewardExp   int64  `json:"reward_exp"`
	RewardMoney int64  `json:"reward_money"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PairKey 有序参与者对的唯一键
// 只取玩家参与者（怪物实例是一次性的），按字典序拼接。
// 同一对玩家（PvE 下即单个玩家）同时只允许一场进行中的战斗。
func (s *BattleSession) PairKey() string {
	var ids []string
	for _, c := range s.Participants {
		if c.Kind == CombatantPlayer {
			ids = append(ids, c.ID)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Participant 按 ID 查找参战单位
func (s *BattleSession) Participant(id string) *Combatant {
	for _, c := range s.Participants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Finished 是否已终局
func (s *BattleSession) Finished() bool {
	return s.Phase == PhaseFinished
}

// AcceptsChoice 当前阶段是否接受该类型的选择
func (s *BattleSession) AcceptsChoice(kind ChoiceKind) bool {
	switch kind {
	case ChoiceAttack:
		return s.Phase == PhaseAttackSelection
	case ChoiceDodge:
		return s.Phase == PhaseDodgeSelection
	default:
		return false
	}
}

// HasChoice 参与者本回合是否已提交该类型的选择
func (s *BattleSession) HasChoice(participantID string, kind ChoiceKind) bool {
	rc, ok := s.Pending[participantID]
	if !ok {
		return false
	}
	if kind == ChoiceAttack {
		return rc.AttackSet
	}
	return rc.DodgeSet
}

// SetChoice 记录参与者本回合的选择，不做覆盖（先到先得由调用方保证）
func (s *BattleSession) SetChoice(participantID string, kind ChoiceKind, zone BattleZone) {
	if s.Pending == nil {
		s.Pending = make(map[string]*RoundChoice)
	}
	rc, ok := s.Pending[participantID]
	if !ok {
		rc = &RoundChoice{}
		s.Pending[participantID] = rc
	}
	if kind == ChoiceAttack {
		rc.Attack = zone
		rc.AttackSet = true
	} else {
		rc.Dodge = zone
		rc.DodgeSet = true
	}
}

// LivingSides 仍有存活单位的阵营集合
func (s *BattleSession) LivingSides() []string {
	seen := make(map[string]bool)
	var sides []string
	for _, c := range s.Participants {
		if c.Alive() && !seen[c.Side] {
			seen[c.Side] = true
			sides = append(sides, c.Side)
		}
	}
	return sides
}

// SideHP 某阵营的剩余总 HP
func (s *BattleSession) SideHP(side string) int {
	total := 0
	for _, c := range s.Participants {
		if c.Side == side {
			total += c.CurrentHP
		}
	}
	return total
}
