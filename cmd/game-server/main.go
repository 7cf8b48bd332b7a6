package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rpgwar-self/internal/middleware"
	"rpgwar-self/internal/modules/game"
	"rpgwar-self/internal/pkg/config"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/metrics"
	"rpgwar-self/internal/pkg/notify"
	redisclient "rpgwar-self/internal/pkg/redis"
	"rpgwar-self/internal/pkg/response"
	"rpgwar-self/internal/pkg/validator"
)

func main() {
	environment := config.GetEnvOrDefault("ENVIRONMENT", "development")
	log.Init(slog.LevelInfo, environment)
	logger := log.GetLogger()

	gameCfg := config.LoadGameConfig()
	if err := gameCfg.Validate(); err != nil {
		logger.Error("【启动】游戏配置非法", err)
		os.Exit(1)
	}

	// PostgreSQL
	db, err := sql.Open("postgres", config.GetDatabaseURL())
	if err != nil {
		logger.Error("【启动】打开数据库失败", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(config.GetEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25))
	db.SetMaxIdleConns(config.GetEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		logger.Error("【启动】数据库连通性检查失败", err)
		os.Exit(1)
	}

	// Redis（战争结算锁）
	rdb, err := redisclient.NewClient(redisclient.Config{
		Host:     config.GetEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     config.GetEnvIntOrDefault("REDIS_PORT", 6379),
		Password: config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       config.GetEnvIntOrDefault("REDIS_DB", 0),
	})
	if err != nil {
		logger.Error("【启动】连接 Redis 失败", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// NATS（频道通知），连不上时降级为静默
	natsAddr := config.GetEnvOrDefault("NATS_ADDRESS", "localhost:4222")
	nc, err := nats.Connect("nats://"+natsAddr,
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		logger.Warn("【启动】连接 NATS 失败，频道通知降级", "error", err.Error())
	} else {
		notify.SetNatsConn(nc)
		defer nc.Close()
	}

	gameMetrics := metrics.DefaultGameMetrics

	kingdoms := strings.Split(config.GetEnvOrDefault("WAR_KINGDOMS", "north,south,east,west"), ",")
	module := game.NewModule(game.Options{
		DB:          db,
		Redis:       rdb.Client,
		Config:      gameCfg,
		GameMetrics: gameMetrics,
		Logger:      logger,
		Kingdoms:    kingdoms,
		WarChannel:  config.GetEnvOrDefault("WAR_CHANNEL", "kingdom-wars"),
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	respWriter := response.NewWriter(logger)
	e.Use(middleware.RecoveryMiddleware(respWriter, logger))
	e.Use(middleware.LoggingMiddleware(logger))

	module.RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := module.StartTasks(); err != nil {
		logger.Error("【启动】战争调度任务启动失败", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", config.GetEnvIntOrDefault("HTTP_PORT", 8080))
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("【启动】HTTP 服务退出", err)
		}
	}()
	logger.Info("【启动】游戏服已启动", "addr", addr, "environment", environment)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("【关闭】收到退出信号，开始优雅关闭")

	module.StopTasks()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("【关闭】HTTP 服务关闭失败", err)
	}
	logger.Info("【关闭】游戏服已退出")
}
