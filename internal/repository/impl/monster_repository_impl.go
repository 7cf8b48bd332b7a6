package impl

import (
	"context"
	"database/sql"
	"fmt"

	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/entity"
	"rpgwar-self/internal/repository/interfaces"
)

type monsterRepositoryImpl struct {
	db *sql.DB
}

// NewMonsterRepository 创建怪物模板仓储实例。
func NewMonsterRepository(db *sql.DB) interfaces.MonsterRepository {
	return &monsterRepositoryImpl{db: db}
}

const monsterColumns = `
	id, name, level, strength, armor, agility, hp, mana,
	is_active, display_order, created_at, updated_at
`

func (r *monsterRepositoryImpl) GetByID(ctx context.Context, id string) (*entity.Monster, error) {
	query := `SELECT ` + monsterColumns + ` FROM monsters WHERE id = $1`
	m, err := r.scanMonster(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeMonsterMissing, "")
	}
	return m, err
}

func (r *monsterRepositoryImpl) PickForLevel(ctx context.Context, level int) (*entity.Monster, error) {
	// 等级差最小者优先，同差值按 display_order 保证确定性
	query := `
		SELECT ` + monsterColumns + `
		FROM monsters
		WHERE COALESCE(is_active, TRUE)
		ORDER BY ABS(level - $1), COALESCE(display_order, 0), id
		LIMIT 1
	`
	m, err := r.scanMonster(r.db.QueryRowContext(ctx, query, level))
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeMonsterMissing, "没有可用的怪物模板")
	}
	return m, err
}

func (r *monsterRepositoryImpl) scanMonster(row *sql.Row) (*entity.Monster, error) {
	var m entity.Monster
	err := row.Scan(
		&m.ID, &m.Name, &m.Level, &m.Strength, &m.Armor, &m.Agility, &m.HP, &m.Mana,
		&m.IsActive, &m.DisplayOrder, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("读取怪物模板失败: %w", err)
	}
	return &m, nil
}
