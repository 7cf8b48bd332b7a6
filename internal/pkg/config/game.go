package config

import (
	"fmt"
	"time"
)

// GameConfig 战斗与王国战争的运行配置
// 全部来自环境变量，默认值沿用线上约定：战争时段 8/13/18 点（塔什干时区）。
type GameConfig struct {
	// 战斗引擎
	MaxRounds    int           // 单场战斗最大回合数
	RoundTimeout time.Duration // 单回合选择超时
	AttackPower  float64       // 力量转化为伤害的系数

	// 战争调度
	Timezone       string        // 战争时区
	WarSlots       []int         // 每日战争时段（小时，本地时间）
	PreWarOffset   time.Duration // 开战前通知提前量
	RestoreDelay   time.Duration // 战后恢复延迟
	ImminentWindow time.Duration // 战争临近窗口（参战者行为封锁提前生效）

	// 战争结算
	DefenseBuff    float64 // 守方加成系数
	AttackWinRatio float64 // 攻方获胜需要超过守方的倍率
	WarBaseMoney   int64   // 战争基础金币池
	WarBaseExp     int64   // 战争基础经验池

	// 战斗奖励
	BattleExpPerLevel   int64 // 每怪物等级经验
	BattleMoneyPerLevel int64 // 每怪物等级金币
}

// LoadGameConfig 从环境变量加载游戏配置
func LoadGameConfig() *GameConfig {
	return &GameConfig{
		MaxRounds:    GetEnvIntOrDefault("BATTLE_MAX_ROUNDS", 10),
		RoundTimeout: time.Duration(GetEnvIntOrDefault("BATTLE_ROUND_TIMEOUT_SECONDS", 30)) * time.Second,
		AttackPower:  GetEnvFloatOrDefault("BATTLE_ATTACK_POWER", 3.0),

		Timezone:       GetEnvOrDefault("WAR_TIMEZONE", "Asia/Tashkent"),
		WarSlots:       GetEnvIntSlice("WAR_SLOTS", []int{8, 13, 18}),
		PreWarOffset:   time.Duration(GetEnvIntOrDefault("WAR_PREWAR_OFFSET_MINUTES", 30)) * time.Minute,
		RestoreDelay:   time.Duration(GetEnvIntOrDefault("WAR_RESTORE_DELAY_MINUTES", 5)) * time.Minute,
		ImminentWindow: time.Duration(GetEnvIntOrDefault("WAR_IMMINENT_WINDOW_MINUTES", 30)) * time.Minute,

		DefenseBuff:    GetEnvFloatOrDefault("WAR_DEFENSE_BUFF", 1.2),
		AttackWinRatio: GetEnvFloatOrDefault("WAR_ATTACK_WIN_RATIO", 1.5),
		WarBaseMoney:   int64(GetEnvIntOrDefault("WAR_BASE_MONEY", 1000)),
		WarBaseExp:     int64(GetEnvIntOrDefault("WAR_BASE_EXP", 500)),

		BattleExpPerLevel:   int64(GetEnvIntOrDefault("BATTLE_EXP_PER_LEVEL", 25)),
		BattleMoneyPerLevel: int64(GetEnvIntOrDefault("BATTLE_MONEY_PER_LEVEL", 10)),
	}
}

// Location 解析配置的战争时区
func (c *GameConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载战争时区失败 %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate 校验配置的基本合法性
func (c *GameConfig) Validate() error {
	if c.MaxRounds <= 0 {
		return fmt.Errorf("BATTLE_MAX_ROUNDS 必须为正数: %d", c.MaxRounds)
	}
	if c.RoundTimeout <= 0 {
		return fmt.Errorf("BATTLE_ROUND_TIMEOUT_SECONDS 必须为正数")
	}
	if c.AttackPower <= 0 {
		return fmt.Errorf("BATTLE_ATTACK_POWER 必须为正数")
	}
	if len(c.WarSlots) == 0 {
		return fmt.Errorf("WAR_SLOTS 不能为空")
	}
	for _, h := range c.WarSlots {
		if h < 0 || h > 23 {
			return fmt.Errorf("WAR_SLOTS 小时越界: %d", h)
		}
	}
	if c.DefenseBuff <= 0 || c.AttackWinRatio <= 0 {
		return fmt.Errorf("战争系数必须为正数")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
