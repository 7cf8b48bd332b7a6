// Package handler 游戏服的 HTTP Handler 层：请求绑定、校验与响应转换。
package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/middleware"
	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/pkg/response"
)

// BattleHandler 战斗 Handler
type BattleHandler struct {
	battleService *service.BattleService
	respWriter    response.Writer
}

// NewBattleHandler 创建战斗 Handler
func NewBattleHandler(serviceContainer *service.ServiceContainer, respWriter response.Writer) *BattleHandler {
	return &BattleHandler{
		battleService: serviceContainer.BattleService,
		respWriter:    respWriter,
	}
}

// ==================== HTTP Request/Response Models ====================

// StartDuelRequest HTTP 发起对决请求
type StartDuelRequest struct {
	OpponentID string `json:"opponent_id" validate:"required"` // 对手用户ID（必填）
}

// SubmitChoiceRequest HTTP 提交回合选择请求
type SubmitChoiceRequest struct {
	Kind string `json:"kind" validate:"required,choice_kind"` // attack 或 dodge
	Zone string `json:"zone" validate:"required,battle_zone"` // head/body/legs/none
}

// CombatantResponse HTTP 参战单位响应
type CombatantResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Side        string `json:"side"`
	Level       int    `json:"level"`
	CurrentHP   int    `json:"current_hp"`
	HP          int    `json:"hp"`
	CurrentMana int    `json:"current_mana"`
	Mana        int    `json:"mana"`
}

// BattleSessionResponse HTTP 战斗会话响应
type BattleSessionResponse struct {
	ID            string                     `json:"id"`
	Mode          string                     `json:"mode"`
	Phase         string                     `json:"phase"`
	Round         int                        `json:"round"`
	MaxRounds     int                        `json:"max_rounds"`
	RoundDeadline string                     `json:"round_deadline,omitempty"`
	Participants  []CombatantResponse        `json:"participants"`
	Rounds        []game_runtime.RoundResult `json:"rounds,omitempty"`
	WinnerSide    string                     `json:"winner_side,omitempty"`
	WinnerID      string                     `json:"winner_id,omitempty"`
	Draw          bool                       `json:"draw,omitempty"`
	RewardExp     int64                      `json:"reward_exp,omitempty"`
	RewardMoney   int64                      `json:"reward_money,omitempty"`
}

func toSessionResponse(session *game_runtime.BattleSession) *BattleSessionResponse {
	resp := &BattleSessionResponse{
		ID:          session.ID,
		Mode:        string(session.Mode),
		Phase:       string(session.Phase),
		Round:       session.Round,
		MaxRounds:   session.MaxRounds,
		Rounds:      session.Rounds,
		WinnerSide:  session.WinnerSide,
		WinnerID:    session.WinnerID,
		Draw:        session.Draw,
		RewardExp:   session.RewardExp,
		RewardMoney: session.RewardMoney,
	}
	if !session.RoundDeadline.IsZero() {
		resp.RoundDeadline = session.RoundDeadline.Format(time.RFC3339)
	}
	for _, c := range session.Participants {
		resp.Participants = append(resp.Participants, CombatantResponse{
			ID:          c.ID,
			Name:        c.Name,
			Kind:        string(c.Kind),
			Side:        c.Side,
			Level:       c.Level,
			CurrentHP:   c.CurrentHP,
			HP:          c.HP,
			CurrentMana: c.CurrentMana,
			Mana:        c.Mana,
		})
	}
	return resp
}

// ==================== HTTP Handlers ====================

// StartEncounter 发起遭遇战
// POST /game/battles/encounter
func (h *BattleHandler) StartEncounter(c echo.Context) error {
	userID := middleware.UserID(c)

	session, err := h.battleService.StartEncounter(c.Request().Context(), userID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// StartDuel 发起对决
// POST /game/battles/duel
func (h *BattleHandler) StartDuel(c echo.Context) error {
	var req StartDuelRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	session, err := h.battleService.StartDuel(c.Request().Context(), middleware.UserID(c), req.OpponentID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// SubmitChoice 提交回合选择
// POST /game/battles/:battle_id/choices
func (h *BattleHandler) SubmitChoice(c echo.Context) error {
	var req SubmitChoiceRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	session, err := h.battleService.SubmitChoice(
		c.Request().Context(),
		c.Param("battle_id"),
		middleware.UserID(c),
		game_runtime.ChoiceKind(req.Kind),
		game_runtime.BattleZone(req.Zone),
	)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// GetSession 查询战斗会话
// GET /game/battles/:battle_id
func (h *BattleHandler) GetSession(c echo.Context) error {
	session, err := h.battleService.GetSession(c.Request().Context(), c.Param("battle_id"))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// Tick 驱动超时检查
// POST /game/battles/:battle_id/tick
// 聊天入口的轮询端点：到点则补齐缺省选择并结算。
func (h *BattleHandler) Tick(c echo.Context) error {
	session, err := h.battleService.Tick(c.Request().Context(), c.Param("battle_id"), time.Now())
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}
