package entity

import (
	"time"

	"github.com/aarondl/null/v8"

	"rpgwar-self/internal/entity/game_runtime"
)

// Monster 怪物模板实体
// 遭遇时按模板生成一次性的 Combatant 快照。
type Monster struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Level    int    `db:"level" json:"level"`
	Strength int    `db:"strength" json:"strength"`
	Armor    int    `db:"armor" json:"armor"`
	Agility  int    `db:"agility" json:"agility"`
	HP       int    `db:"hp" json:"hp"`
	Mana     int    `db:"mana" json:"mana"`

	IsActive     null.Bool `db:"is_active" json:"is_active"`
	DisplayOrder null.Int  `db:"display_order" json:"display_order"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TableName 返回表名
func (Monster) TableName() string {
	return "monsters"
}

// Spawn 按模板生成参战单位
// instanceID 由调用方提供，保证同一会话内唯一。
func (m *Monster) Spawn(instanceID, side string) *game_runtime.Combatant {
	return &game_runtime.Combatant{
		ID:          instanceID,
		Name:        m.Name,
		Kind:        game_runtime.CombatantMonster,
		Side:        side,
		Level:       m.Level,
		Strength:    m.Strength,
		Armor:       m.Armor,
		Agility:     m.Agility,
		HP:          m.HP,
		CurrentHP:   m.HP,
		Mana:        m.Mana,
		CurrentMana: m.Mana,
	}
}
