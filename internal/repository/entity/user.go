package entity

import (
	"database/sql"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
)

// User 数据库用户实体（游戏档案）
type User struct {
	// 主键：与聊天平台用户 ID 对应
	ID string `db:"id" json:"id"`

	// 用户信息
	Name    string         `db:"name" json:"name"`
	Gender  sql.NullString `db:"gender" json:"gender,omitempty"`
	Kingdom string         `db:"kingdom" json:"kingdom"`

	// 成长属性
	Level      int   `db:"level" json:"level"`
	Experience int64 `db:"experience" json:"experience"`
	Money      int64 `db:"money" json:"money"`

	// 战斗属性
	Strength    int `db:"strength" json:"strength"`
	Armor       int `db:"armor" json:"armor"`
	HP          int `db:"hp" json:"hp"`
	CurrentHP   int `db:"current_hp" json:"current_hp"`
	Agility     int `db:"agility" json:"agility"`
	Mana        int `db:"mana" json:"mana"`
	CurrentMana int `db:"current_mana" json:"current_mana"`

	// 时间戳
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TableName 返回表名
func (User) TableName() string {
	return "users"
}

// IsDeleted 检查用户是否被软删除
func (u *User) IsDeleted() bool {
	return u.DeletedAt.Valid
}

// Snapshot 截取当前属性作为参战快照
// 快照一旦生成即与档案解耦，战斗/战争期间档案变更不回写。
func (u *User) Snapshot() game_runtime.Combatant {
	return game_runtime.Combatant{
		ID:          u.ID,
		Name:        u.Name,
		Kind:        game_runtime.CombatantPlayer,
		Kingdom:     u.Kingdom,
		Level:       u.Level,
		Strength:    u.Strength,
		Armor:       u.Armor,
		Agility:     u.Agility,
		HP:          u.HP,
		CurrentHP:   u.CurrentHP,
		Mana:        u.Mana,
		CurrentMana: u.CurrentMana,
	}
}
