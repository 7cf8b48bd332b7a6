package impl

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/interfaces"
	"rpgwar-self/internal/repository/query"
)

type warRepositoryImpl struct {
	db *sql.DB
}

// NewWarRepository 创建王国战争仓储实例。
func NewWarRepository(db *sql.DB) interfaces.WarRepository {
	return &warRepositoryImpl{db: db}
}

func (r *warRepositoryImpl) CreateScheduled(ctx context.Context, war *game_runtime.War) (bool, error) {
	if war == nil {
		return false, fmt.Errorf("war is nil")
	}

	attackers, err := json.Marshal(war.AttackingKingdoms)
	if err != nil {
		return false, fmt.Errorf("序列化攻方王国列表失败: %w", err)
	}

	// (defending_kingdom, scheduled_time) 唯一约束保证每个时段每个守方至多一场，
	// 每日滚动任务重复执行时靠 ON CONFLICT DO NOTHING 幂等。
	query := `
		INSERT INTO game_runtime.wars (
			id, type, status, scheduled_time, defending_kingdom,
			attacking_kingdoms, defense_buff, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (defending_kingdom, scheduled_time) DO NOTHING
	`
	res, err := r.db.ExecContext(
		ctx,
		query,
		war.ID,
		string(war.Type),
		string(war.Status),
		war.ScheduledTime,
		war.DefendingKingdom,
		attackers,
		war.DefenseBuff,
		war.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("插入战争记录失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取插入行数失败: %w", err)
	}
	return affected > 0, nil
}

const warColumns = `
	id, type, status, scheduled_time, defending_kingdom,
	attacking_kingdoms, defense_buff,
	attack_score, defense_score, winner_role, winning_kingdom, margin,
	money_transferred, exp_distributed,
	created_at, started_at, finished_at, restored_at
`

func (r *warRepositoryImpl) GetByID(ctx context.Context, id string) (*game_runtime.War, error) {
	query := `SELECT ` + warColumns + ` FROM game_runtime.wars WHERE id = $1`
	war, err := scanWar(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeWarNotFound, "").WithWar(id)
	}
	return war, err
}

func (r *warRepositoryImpl) ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return r.listByStatusInWindow(ctx, game_runtime.WarScheduled, from, to)
}

func (r *warRepositoryImpl) ListFinishedInWindow(ctx context.Context, from, to time.Time) ([]*game_runtime.War, error) {
	return r.listByStatusInWindow(ctx, game_runtime.WarFinished, from, to)
}

func (r *warRepositoryImpl) listByStatusInWindow(ctx context.Context, status game_runtime.WarStatus, from, to time.Time) ([]*game_runtime.War, error) {
	query := `
		SELECT ` + warColumns + `
		FROM game_runtime.wars
		WHERE status = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		ORDER BY scheduled_time, defending_kingdom
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), from, to)
	if err != nil {
		return nil, fmt.Errorf("查询战争列表失败: %w", err)
	}
	defer rows.Close()

	var wars []*game_runtime.War
	for rows.Next() {
		war, err := scanWar(rows)
		if err != nil {
			return nil, err
		}
		wars = append(wars, war)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历战争列表失败: %w", err)
	}
	return wars, nil
}

func (r *warRepositoryImpl) ListHistory(ctx context.Context, q query.WarQuery) ([]*game_runtime.War, error) {
	q.Pagination.Normalize()

	where := "1=1"
	args := []interface{}{}
	if q.Kingdom != "" {
		args = append(args, q.Kingdom)
		// 守方直接匹配，攻方存在 JSONB 数组里
		where += fmt.Sprintf(" AND (defending_kingdom = $%d OR attacking_kingdoms @> to_jsonb($%d::text))", len(args), len(args))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.ScheduledAfter != nil {
		args = append(args, *q.ScheduledAfter)
		where += fmt.Sprintf(" AND scheduled_time >= $%d", len(args))
	}
	args = append(args, q.PageSize, q.Offset)

	sqlQuery := fmt.Sprintf(`
		SELECT `+warColumns+`
		FROM game_runtime.wars
		WHERE %s
		ORDER BY scheduled_time DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("查询战争历史失败: %w", err)
	}
	defer rows.Close()

	var wars []*game_runtime.War
	for rows.Next() {
		war, err := scanWar(rows)
		if err != nil {
			return nil, err
		}
		wars = append(wars, war)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历战争历史失败: %w", err)
	}
	return wars, nil
}

func (r *warRepositoryImpl) FindCurrentByKingdom(ctx context.Context, kingdom string) (*game_runtime.War, error) {
	query := `
		SELECT ` + warColumns + `
		FROM game_runtime.wars
		WHERE defending_kingdom = $1 AND status <> 'finished'
		ORDER BY scheduled_time
		LIMIT 1
	`
	war, err := scanWar(r.db.QueryRowContext(ctx, query, kingdom))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return war, err
}

func (r *warRepositoryImpl) MarkRestored(ctx context.Context, warID string) (bool, error) {
	// restored_at IS NULL 做原子抢占，多实例下只有一个能打标成功
	query := `
		UPDATE game_runtime.wars
		SET restored_at = NOW()
		WHERE id = $1 AND restored_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, warID)
	if err != nil {
		return false, fmt.Errorf("打恢复标记失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取更新行数失败: %w", err)
	}
	return affected > 0, nil
}

func (r *warRepositoryImpl) MarkActive(ctx context.Context, warID string, at time.Time) (bool, error) {
	query := `
		UPDATE game_runtime.wars
		SET status = 'active', started_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`
	res, err := r.db.ExecContext(ctx, query, warID, at)
	if err != nil {
		return false, fmt.Errorf("激活战争失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取更新行数失败: %w", err)
	}
	return affected > 0, nil
}

func (r *warRepositoryImpl) FinishWar(ctx context.Context, war *game_runtime.War, participations []*game_runtime.WarParticipation) error {
	if war == nil {
		return fmt.Errorf("war is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	// 只允许从未结束状态落地，一旦 finished 不再覆盖
	res, err := tx.ExecContext(ctx, `
		UPDATE game_runtime.wars SET
			status = 'finished',
			attack_score = $2, defense_score = $3,
			winner_role = $4, winning_kingdom = $5, margin = $6,
			money_transferred = $7, exp_distributed = $8,
			finished_at = $9
		WHERE id = $1 AND status <> 'finished'
	`,
		war.ID,
		war.AttackScore,
		war.DefenseScore,
		string(war.WinnerRole),
		war.WinningKingdom,
		war.Margin,
		war.MoneyTransferred,
		war.ExpDistributed,
		war.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("写入战争结算失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取更新行数失败: %w", err)
	}
	if affected == 0 {
		return xerrors.New(xerrors.CodeWarLocked, "战争已在别处完成结算").WithWar(war.ID).WithRetryable()
	}

	for _, p := range participations {
		if _, err := tx.ExecContext(ctx, `
			UPDATE game_runtime.war_participations
			SET reward_money = $3, reward_exp = $4
			WHERE war_id = $1 AND user_id = $2
		`, p.WarID, p.UserID, p.RewardMoney, p.RewardExp); err != nil {
			return fmt.Errorf("补写参战奖励失败 user=%s: %w", p.UserID, err)
		}

		if p.RewardMoney == 0 && p.RewardExp == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET money = money + $2, experience = experience + $3, updated_at = NOW()
			WHERE id = $1
		`, p.UserID, p.RewardMoney, p.RewardExp); err != nil {
			return fmt.Errorf("发放战争奖励失败 user=%s: %w", p.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWar(row rowScanner) (*game_runtime.War, error) {
	var (
		war            game_runtime.War
		warType        string
		status         string
		attackers      []byte
		winnerRole     sql.NullString
		winningKingdom sql.NullString
		startedAt      sql.NullTime
		finishedAt     sql.NullTime
		restoredAt     sql.NullTime
	)
	err := row.Scan(
		&war.ID,
		&warType,
		&status,
		&war.ScheduledTime,
		&war.DefendingKingdom,
		&attackers,
		&war.DefenseBuff,
		&war.AttackScore,
		&war.DefenseScore,
		&winnerRole,
		&winningKingdom,
		&war.Margin,
		&war.MoneyTransferred,
		&war.ExpDistributed,
		&war.CreatedAt,
		&startedAt,
		&finishedAt,
		&restoredAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("读取战争记录失败: %w", err)
	}

	war.Type = game_runtime.WarType(warType)
	war.Status = game_runtime.WarStatus(status)
	war.WinnerRole = game_runtime.WarRole(winnerRole.String)
	war.WinningKingdom = winningKingdom.String
	if startedAt.Valid {
		war.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		war.FinishedAt = &finishedAt.Time
	}
	if restoredAt.Valid {
		war.RestoredAt = &restoredAt.Time
	}
	if len(attackers) > 0 {
		if err := json.Unmarshal(attackers, &war.AttackingKingdoms); err != nil {
			return nil, fmt.Errorf("解析攻方王国列表失败: %w", err)
		}
	}
	return &war, nil
}
