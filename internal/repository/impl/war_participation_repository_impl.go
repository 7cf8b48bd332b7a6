package impl

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/pkg/xerrors"
	"rpgwar-self/internal/repository/interfaces"
)

type warParticipationRepositoryImpl struct {
	db *sql.DB
}

// NewWarParticipationRepository 创建参战记录仓储实例。
func NewWarParticipationRepository(db *sql.DB) interfaces.WarParticipationRepository {
	return &warParticipationRepositoryImpl{db: db}
}

func (r *warParticipationRepositoryImpl) Create(ctx context.Context, p *game_runtime.WarParticipation) error {
	if p == nil {
		return fmt.Errorf("war participation is nil")
	}

	snapshot, err := json.Marshal(p.Snapshot)
	if err != nil {
		return fmt.Errorf("序列化参战快照失败: %w", err)
	}

	query := `
		INSERT INTO game_runtime.war_participations (
			id, war_id, user_id, kingdom, role, snapshot,
			reward_money, reward_exp, joined_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (war_id, user_id) DO NOTHING
	`
	res, err := r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.WarID,
		p.UserID,
		p.Kingdom,
		string(p.Role),
		snapshot,
		p.RewardMoney,
		p.RewardExp,
		p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("插入参战记录失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取插入行数失败: %w", err)
	}
	if affected == 0 {
		return xerrors.New(xerrors.CodeWarAlreadyJoined, "").WithWar(p.WarID).WithUser(p.UserID)
	}
	return nil
}

func (r *warParticipationRepositoryImpl) ListByWar(ctx context.Context, warID string) ([]*game_runtime.WarParticipation, error) {
	query := `
		SELECT id, war_id, user_id, kingdom, role, snapshot,
		       reward_money, reward_exp, joined_at
		FROM game_runtime.war_participations
		WHERE war_id = $1
		ORDER BY joined_at
	`
	rows, err := r.db.QueryContext(ctx, query, warID)
	if err != nil {
		return nil, fmt.Errorf("查询参战记录失败: %w", err)
	}
	defer rows.Close()

	var parts []*game_runtime.WarParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历参战记录失败: %w", err)
	}
	return parts, nil
}

func (r *warParticipationRepositoryImpl) ListByUserUnfinished(ctx context.Context, userID string) ([]*interfaces.ParticipationWithWar, error) {
	// 封锁检查只关心未结束的战争，finished 的参战记录不参与判断
	query := `
		SELECT p.id, p.war_id, p.user_id, p.kingdom, p.role, p.snapshot,
		       p.reward_money, p.reward_exp, p.joined_at,
		       w.status, w.scheduled_time, w.defending_kingdom
		FROM game_runtime.war_participations p
		JOIN game_runtime.wars w ON w.id = p.war_id
		WHERE p.user_id = $1 AND w.status <> 'finished'
		ORDER BY w.scheduled_time
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户参战记录失败: %w", err)
	}
	defer rows.Close()

	var result []*interfaces.ParticipationWithWar
	for rows.Next() {
		var (
			p        game_runtime.WarParticipation
			role     string
			snapshot []byte
			item     interfaces.ParticipationWithWar
			status   string
		)
		if err := rows.Scan(
			&p.ID, &p.WarID, &p.UserID, &p.Kingdom, &role, &snapshot,
			&p.RewardMoney, &p.RewardExp, &p.JoinedAt,
			&status, &item.ScheduledTime, &item.DefendingKingdom,
		); err != nil {
			return nil, fmt.Errorf("读取用户参战记录失败: %w", err)
		}
		p.Role = game_runtime.WarRole(role)
		if err := json.Unmarshal(snapshot, &p.Snapshot); err != nil {
			return nil, fmt.Errorf("解析参战快照失败: %w", err)
		}
		item.Participation = &p
		item.WarStatus = game_runtime.WarStatus(status)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历用户参战记录失败: %w", err)
	}
	return result, nil
}

func scanParticipation(rows *sql.Rows) (*game_runtime.WarParticipation, error) {
	var (
		p        game_runtime.WarParticipation
		role     string
		snapshot []byte
	)
	if err := rows.Scan(
		&p.ID, &p.WarID, &p.UserID, &p.Kingdom, &role, &snapshot,
		&p.RewardMoney, &p.RewardExp, &p.JoinedAt,
	); err != nil {
		return nil, fmt.Errorf("读取参战记录失败: %w", err)
	}
	p.Role = game_runtime.WarRole(role)
	if err := json.Unmarshal(snapshot, &p.Snapshot); err != nil {
		return nil, fmt.Errorf("解析参战快照失败: %w", err)
	}
	return &p, nil
}
