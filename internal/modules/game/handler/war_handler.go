package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/entity/game_runtime"
	"rpgwar-self/internal/middleware"
	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/pkg/response"
	"rpgwar-self/internal/repository/query"
)

// WarHandler 王国战争 Handler
type WarHandler struct {
	warService      *service.WarService
	warBlockService *service.WarBlockService
	respWriter      response.Writer
}

// NewWarHandler 创建王国战争 Handler
func NewWarHandler(serviceContainer *service.ServiceContainer, respWriter response.Writer) *WarHandler {
	return &WarHandler{
		warService:      serviceContainer.WarService,
		warBlockService: serviceContainer.WarBlockService,
		respWriter:      respWriter,
	}
}

// ==================== HTTP Request/Response Models ====================

// JoinWarRequest HTTP 报名参战请求
type JoinWarRequest struct {
	Role string `json:"role" validate:"required,oneof=attacker defender"` // attacker 或 defender
}

// WarResponse HTTP 战争响应
type WarResponse struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	Status            string   `json:"status"`
	ScheduledTime     string   `json:"scheduled_time"`
	DefendingKingdom  string   `json:"defending_kingdom"`
	AttackingKingdoms []string `json:"attacking_kingdoms"`
	WinnerRole        string   `json:"winner_role,omitempty"`
	WinningKingdom    string   `json:"winning_kingdom,omitempty"`
	AttackScore       float64  `json:"attack_score,omitempty"`
	DefenseScore      float64  `json:"defense_score,omitempty"`
	Margin            float64  `json:"margin,omitempty"`
	MoneyTransferred  int64    `json:"money_transferred,omitempty"`
	ExpDistributed    int64    `json:"exp_distributed,omitempty"`
}

// ParticipationResponse HTTP 参战记录响应
type ParticipationResponse struct {
	ID          string `json:"id"`
	WarID       string `json:"war_id"`
	UserID      string `json:"user_id"`
	Kingdom     string `json:"kingdom"`
	Role        string `json:"role"`
	RewardMoney int64  `json:"reward_money,omitempty"`
	RewardExp   int64  `json:"reward_exp,omitempty"`
	JoinedAt    string `json:"joined_at"`
}

func toWarResponse(war *game_runtime.War) *WarResponse {
	return &WarResponse{
		ID:                war.ID,
		Type:              string(war.Type),
		Status:            string(war.Status),
		ScheduledTime:     war.ScheduledTime.Format(time.RFC3339),
		DefendingKingdom:  war.DefendingKingdom,
		AttackingKingdoms: war.AttackingKingdoms,
		WinnerRole:        string(war.WinnerRole),
		WinningKingdom:    war.WinningKingdom,
		AttackScore:       war.AttackScore,
		DefenseScore:      war.DefenseScore,
		Margin:            war.Margin,
		MoneyTransferred:  war.MoneyTransferred,
		ExpDistributed:    war.ExpDistributed,
	}
}

func toParticipationResponse(p *game_runtime.WarParticipation) ParticipationResponse {
	return ParticipationResponse{
		ID:          p.ID,
		WarID:       p.WarID,
		UserID:      p.UserID,
		Kingdom:     p.Kingdom,
		Role:        string(p.Role),
		RewardMoney: p.RewardMoney,
		RewardExp:   p.RewardExp,
		JoinedAt:    p.JoinedAt.Format(time.RFC3339),
	}
}

// ==================== HTTP Handlers ====================

// GetWar 查询战争详情
// GET /game/wars/:war_id
func (h *WarHandler) GetWar(c echo.Context) error {
	war, err := h.warService.GetWar(c.Request().Context(), c.Param("war_id"))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toWarResponse(war))
}

// GetKingdomWar 查询某王国当前的战争
// GET /game/kingdoms/:kingdom/war
func (h *WarHandler) GetKingdomWar(c echo.Context) error {
	war, err := h.warService.CurrentWar(c.Request().Context(), c.Param("kingdom"))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	if war == nil {
		return response.EchoNotFound(c, h.respWriter, "该王国当前没有战争")
	}
	return response.EchoOK(c, h.respWriter, toWarResponse(war))
}

// JoinWar 报名参战
// POST /game/wars/:war_id/join
func (h *WarHandler) JoinWar(c echo.Context) error {
	var req JoinWarRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	p, err := h.warService.JoinWar(
		c.Request().Context(),
		c.Param("war_id"),
		middleware.UserID(c),
		game_runtime.WarRole(req.Role),
	)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, toParticipationResponse(p))
}

// ListParticipants 查询参战名单
// GET /game/wars/:war_id/participants
func (h *WarHandler) ListParticipants(c echo.Context) error {
	participations, err := h.warService.Participants(c.Request().Context(), c.Param("war_id"))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	out := make([]ParticipationResponse, 0, len(participations))
	for _, p := range participations {
		out = append(out, toParticipationResponse(p))
	}
	return response.EchoOK(c, h.respWriter, out)
}

// ListWars 分页查询战争历史
// GET /game/wars?kingdom=north&status=finished&page=1&page_size=20
func (h *WarHandler) ListWars(c echo.Context) error {
	q := query.WarQuery{
		Kingdom: c.QueryParam("kingdom"),
		Status:  game_runtime.WarStatus(c.QueryParam("status")),
	}
	if page := c.QueryParam("page"); page != "" {
		q.Page, _ = strconv.Atoi(page)
	}
	if pageSize := c.QueryParam("page_size"); pageSize != "" {
		q.PageSize, _ = strconv.Atoi(pageSize)
	}
	if after := c.QueryParam("scheduled_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return response.EchoBadRequest(c, h.respWriter, "scheduled_after 需为 RFC3339 时间")
		}
		q.ScheduledAfter = &t
	}

	wars, err := h.warService.History(c.Request().Context(), q)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	out := make([]*WarResponse, 0, len(wars))
	for _, war := range wars {
		out = append(out, toWarResponse(war))
	}
	return response.EchoOK(c, h.respWriter, out)
}

// CheckBlocked 查询某动作是否被战争参与封锁
// GET /game/wars/block-check?action=shop_menu
// 聊天入口在渲染菜单前调用，决定是否置灰按钮。
func (h *WarHandler) CheckBlocked(c echo.Context) error {
	action := c.QueryParam("action")
	if action == "" {
		return response.EchoBadRequest(c, h.respWriter, "action 不能为空")
	}
	decision, err := h.warBlockService.CheckBlocked(c.Request().Context(), middleware.UserID(c), action)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, decision)
}
