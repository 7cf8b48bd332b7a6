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

type battleSessionRepositoryImpl struct {
	db *sql.DB
}

// NewBattleSessionRepository 创建战斗会话仓储实例。
func NewBattleSessionRepository(db *sql.DB) interfaces.BattleSessionRepository {
	return &battleSessionRepositoryImpl{db: db}
}

// battleSessionRow 数据库行结构，参与者与回合日志以 JSONB 存储。
type battleSessionRow struct {
	participants []byte
	pending      []byte
	rounds       []byte
}

func (r *battleSessionRepositoryImpl) Create(ctx context.Context, session *game_runtime.BattleSession) error {
	if session == nil {
		return fmt.Errorf("battle session is nil")
	}

	participants, pending, rounds, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO game_runtime.battle_sessions (
			id, mode, phase, round, max_rounds, pair_key,
			participants, pending, round_deadline, rounds,
			winner_side, winner_id, draw, reward_exp, reward_money,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		session.ID,
		string(session.Mode),
		string(session.Phase),
		session.Round,
		session.MaxRounds,
		session.PairKey(),
		participants,
		pending,
		session.RoundDeadline,
		rounds,
		nullString(session.WinnerSide),
		nullString(session.WinnerID),
		session.Draw,
		session.RewardExp,
		session.RewardMoney,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("插入战斗会话失败: %w", err)
	}
	return nil
}

func (r *battleSessionRepositoryImpl) GetByID(ctx context.Context, id string) (*game_runtime.BattleSession, error) {
	query := `
		SELECT id, mode, phase, round, max_rounds,
		       participants, pending, round_deadline, rounds,
		       winner_side, winner_id, draw, reward_exp, reward_money,
		       created_at, updated_at
		FROM game_runtime.battle_sessions
		WHERE id = $1
	`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *battleSessionRepositoryImpl) Update(ctx context.Context, session *game_runtime.BattleSession, expectedRound int) error {
	if session == nil {
		return fmt.Errorf("battle session is nil")
	}

	participants, pending, rounds, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}

	// 乐观并发控制：只有回合号仍是加载时的值才允许落地，
	// 并发结算对同一回合的第二次提交在这里被拒绝。
	query := `
		UPDATE game_runtime.battle_sessions SET
			phase = $2, round = $3, participants = $4, pending = $5,
			round_deadline = $6, rounds = $7,
			winner_side = $8, winner_id = $9, draw = $10, reward_exp = $11, reward_money = $12,
			updated_at = $13
		WHERE id = $1 AND round = $14 AND phase <> 'finished'
	`
	res, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		string(session.Phase),
		session.Round,
		participants,
		pending,
		session.RoundDeadline,
		rounds,
		nullString(session.WinnerSide),
		nullString(session.WinnerID),
		session.Draw,
		session.RewardExp,
		session.RewardMoney,
		session.UpdatedAt,
		expectedRound,
	)
	if err != nil {
		return fmt.Errorf("更新战斗会话失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取更新行数失败: %w", err)
	}
	if affected == 0 {
		return xerrors.New(xerrors.CodeBattleConflict, "").WithBattle(session.ID).WithRetryable()
	}
	return nil
}

func (r *battleSessionRepositoryImpl) FindActiveByPair(ctx context.Context, pairKey string) (*game_runtime.BattleSession, error) {
	query := `
		SELECT id, mode, phase, round, max_rounds,
		       participants, pending, round_deadline, rounds,
		       winner_side, winner_id, draw, reward_exp, reward_money,
		       created_at, updated_at
		FROM game_runtime.battle_sessions
		WHERE pair_key = $1 AND phase <> 'finished'
		ORDER BY created_at DESC
		LIMIT 1
	`
	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, pairKey))
	if err != nil {
		if xerrors.IsCode(err, xerrors.CodeBattleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (r *battleSessionRepositoryImpl) scanSession(row *sql.Row) (*game_runtime.BattleSession, error) {
	var (
		session    game_runtime.BattleSession
		mode       string
		phase      string
		blobs      battleSessionRow
		winnerSide sql.NullString
		winnerID   sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&mode,
		&phase,
		&session.Round,
		&session.MaxRounds,
		&blobs.participants,
		&blobs.pending,
		&session.RoundDeadline,
		&blobs.rounds,
		&winnerSide,
		&winnerID,
		&session.Draw,
		&session.RewardExp,
		&session.RewardMoney,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeBattleNotFound, "")
	}
	if err != nil {
		return nil, fmt.Errorf("读取战斗会话失败: %w", err)
	}

	session.Mode = game_runtime.BattleMode(mode)
	session.Phase = game_runtime.BattlePhase(phase)
	session.WinnerSide = winnerSide.String
	session.WinnerID = winnerID.String

	if err := json.Unmarshal(blobs.participants, &session.Participants); err != nil {
		return nil, fmt.Errorf("解析参战单位失败: %w", err)
	}
	if len(blobs.pending) > 0 {
		if err := json.Unmarshal(blobs.pending, &session.Pending); err != nil {
			return nil, fmt.Errorf("解析待结算选择失败: %w", err)
		}
	}
	if session.Pending == nil {
		session.Pending = make(map[string]*game_runtime.RoundChoice)
	}
	if len(blobs.rounds) > 0 {
		if err := json.Unmarshal(blobs.rounds, &session.Rounds); err != nil {
			return nil, fmt.Errorf("解析回合日志失败: %w", err)
		}
	}
	return &session, nil
}

func marshalSessionBlobs(session *game_runtime.BattleSession) (participants, pending, rounds []byte, err error) {
	participants, err = json.Marshal(session.Participants)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("序列化参战单位失败: %w", err)
	}
	pending, err = json.Marshal(session.Pending)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("序列化待结算选择失败: %w", err)
	}
	rounds, err = json.Marshal(session.Rounds)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("序列化回合日志失败: %w", err)
	}
	return participants, pending, rounds, nil
}
