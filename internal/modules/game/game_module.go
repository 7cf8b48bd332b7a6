// Package game 组装游戏模块：仓储、服务、Handler、中间件与定时任务。
package game

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	custommiddleware "rpgwar-self/internal/middleware"
	"rpgwar-self/internal/modules/game/handler"
	"rpgwar-self/internal/modules/game/service"
	"rpgwar-self/internal/modules/game/tasks"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/notify"
	"rpgwar-self/internal/pkg/response"
)

// Module 游戏模块
type Module struct {
	serviceContainer *service.ServiceContainer
	battleHandler    *handler.BattleHandler
	warHandler       *handler.WarHandler
	warBlockMW       *custommiddleware.WarBlockMiddleware
	schedulerTask    *tasks.WarSchedulerTask
	respWriter       response.Writer
	logger           log.Logger
}

// Options 模块装配参数
type Options struct {
	DB          *sql.DB
	Redis       redis.Cmdable
	Config      *config.GameConfig
	GameMetrics *metrics.GameMetrics
	Logger      log.Logger
	Kingdoms    []string // 参与王国战争轮换的王国
	WarChannel  string   // 战争频道标识
}

// NewModule 装配游戏模块。
func NewModule(opts Options) *Module {
	respWriter := response.NewWriter(opts.Logger)
	container := service.NewServiceContainer(
		opts.DB, opts.Redis, opts.Config, opts.GameMetrics, opts.Logger, opts.Kingdoms,
	)

	gateway := notify.NewNatsGateway(notify.SubjectWarSummary)
	schedulerTask := tasks.NewWarSchedulerTask(
		container.WarService,
		container.UserRepo(),
		gateway,
		opts.Config,
		opts.GameMetrics,
		opts.Logger,
		opts.WarChannel,
	)

	return &Module{
		serviceContainer: container,
		battleHandler:    handler.NewBattleHandler(container, respWriter),
		warHandler:       handler.NewWarHandler(container, respWriter),
		warBlockMW:       custommiddleware.NewWarBlockMiddleware(container.WarBlockService, respWriter, opts.Logger),
		schedulerTask:    schedulerTask,
		respWriter:       respWriter,
		logger:           opts.Logger,
	}
}

// RegisterRoutes 注册游戏模块的 HTTP 路由
// 会改变玩家状态的入口动作挂行为封锁中间件；战争相关入口不封锁。
func (m *Module) RegisterRoutes(e *echo.Echo) {
	auth := custommiddleware.AuthMiddleware(m.respWriter, m.logger)
	g := e.Group("/game", auth)

	// 战斗（参战期间封锁）
	g.POST("/battles/encounter", m.battleHandler.StartEncounter, m.warBlockMW.Require("pve_encounter"))
	g.POST("/battles/duel", m.battleHandler.StartDuel, m.warBlockMW.Require("pvp_battle"))
	g.POST("/battles/:battle_id/choices", m.battleHandler.SubmitChoice)
	g.POST("/battles/:battle_id/tick", m.battleHandler.Tick)
	g.GET("/battles/:battle_id", m.battleHandler.GetSession)

	// 王国战争（白名单动作，始终放行）
	g.GET("/wars", m.warHandler.ListWars)
	g.GET("/wars/block-check", m.warHandler.CheckBlocked)
	g.GET("/wars/:war_id", m.warHandler.GetWar)
	g.GET("/wars/:war_id/participants", m.warHandler.ListParticipants)
	g.POST("/wars/:war_id/join", m.warHandler.JoinWar)
	g.GET("/kingdoms/:kingdom/war", m.warHandler.GetKingdomWar)
}

// StartTasks 启动定时任务。
func (m *Module) StartTasks() error {
	return m.schedulerTask.Start()
}

// StopTasks 停止定时任务（优雅关闭）。
func (m *Module) StopTasks() {
	m.schedulerTask.Stop()
}
