package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/entity"
	"rpgwar-self/internal/repository/interfaces"
)

type userRepositoryImpl struct {
	db *sql.DB
}

// NewUserRepository 创建用户档案仓储实例。
func NewUserRepository(db *sql.DB) interfaces.UserRepository {
	return &userRepositoryImpl{db: db}
}

func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT id, name, gender, kingdom,
		       level, experience, money,
		       strength, armor, hp, current_hp, agility, mana, current_mana,
		       created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var u entity.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Gender, &u.Kingdom,
		&u.Level, &u.Experience, &u.Money,
		&u.Strength, &u.Armor, &u.HP, &u.CurrentHP, &u.Agility, &u.Mana, &u.CurrentMana,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeUserNotFound, "").WithUser(id)
	}
	if err != nil {
		return nil, fmt.Errorf("读取用户档案失败: %w", err)
	}
	return &u, nil
}

func (r *userRepositoryImpl) ApplyRewards(ctx context.Context, userID string, exp, money int64) error {
	query := `
		UPDATE users
		SET experience = experience + $2, money = money + $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, userID, exp, money)
	if err != nil {
		return fmt.Errorf("发放奖励失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取更新行数失败: %w", err)
	}
	if affected == 0 {
		return xerrors.New(xerrors.CodeUserNotFound, "").WithUser(userID)
	}
	return nil
}

func (r *userRepositoryImpl) RestoreVitals(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	query := `
		UPDATE users
		SET current_hp = hp, current_mana = mana, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return 0, fmt.Errorf("恢复用户状态失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取更新行数失败: %w", err)
	}
	return affected, nil
}
